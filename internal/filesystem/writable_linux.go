package filesystem

import "golang.org/x/sys/unix"

// CheckWritable returns ErrReadOnly when dir sits on a read-only mount, or
// the access(2) error when the process may not create entries in dir.
func CheckWritable(dir string) error {
	var st unix.Statfs_t
	if err := unix.Statfs(dir, &st); err == nil && st.Flags&unix.ST_RDONLY != 0 {
		return ErrReadOnly
	}
	return unix.Access(dir, unix.W_OK)
}
