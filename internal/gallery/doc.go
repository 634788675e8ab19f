/*
Package gallery is the orchestrating service behind the viewer: it lists
folders and images, serves thumbnails and full views, and performs the two
write operations, delete and edit-and-save.

Every path a caller supplies is relative to a gallery root, itself relative
to the browse root, and is re-validated by the sandbox on each call. Write
operations consult the Authenticator before touching the filesystem and
check the target directory for writability, so a read-only mount reports
PermissionDenied instead of failing part way.

All errors are *apperrors.Error values.
*/
package gallery
