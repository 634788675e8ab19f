/*
Package sandbox confines user-supplied relative paths to a configured root.

# Resolution

Resolve is the single entry point every other component goes through:

	abs, err := sandbox.Resolve(base, "beach/a.jpg", true)

Resolution happens in two stages. The lexical stage (Clean) rejects NUL
bytes, absolute paths and anything that climbs above the base after
cleaning. The physical stage canonicalizes symlinks with
filepath.EvalSymlinks and checks that the real path equals the base or lies
beneath it. A symlink inside the base that targets a location outside it
is therefore refused rather than followed.

# Nested roots

The BrowseRoot bounds all access. A gallery root is a path relative to the
BrowseRoot chosen by the client; Sandbox.ResolveInGallery validates the
gallery root against the BrowseRoot and then the relative path against the
gallery root, on every request.

Errors are *apperrors.Error values of kind PathEscape, NotFound,
PermissionDenied or IoError. PathEscape messages never contain filesystem
locations.
*/
package sandbox
