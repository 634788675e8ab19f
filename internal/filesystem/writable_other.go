//go:build unix && !linux

package filesystem

import "golang.org/x/sys/unix"

// CheckWritable returns the access(2) error when the process may not create
// entries in dir.
func CheckWritable(dir string) error {
	return unix.Access(dir, unix.W_OK)
}
