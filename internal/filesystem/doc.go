/*
Package filesystem wraps the filesystem calls echo-viewer makes against
gallery storage, which is frequently an NFS mount.

# Retry

StatWithRetry, OpenWithRetry and ReadDirWithRetry retry ESTALE (stale file
handle) failures with exponential backoff; every other error is returned
immediately. The defaults are three retries starting at 50ms, capped at
500ms:

	info, err := filesystem.StatWithRetry(path, filesystem.DefaultRetryConfig())

# Writes

WriteUnique publishes a new file without ever replacing an existing one. It
writes to a ".echo-<uuid>.tmp" file in the destination directory, fsyncs
it, then hard-links it to the first free candidate name.

CheckWritable tells read-only mounts and permission problems apart from
other failures before a mutation is attempted.

# Metrics

Operations are reported through an Observer (see SetObserver), labelled by
the volume that a VolumeResolver assigns to the path.
*/
package filesystem
