package filesystem

import "errors"

// ErrReadOnly reports a read-only mount.
var ErrReadOnly = errors.New("read-only filesystem")
