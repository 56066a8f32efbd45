//go:build linux || darwin

package render

import "syscall"

// diskFree reports the bytes available to unprivileged processes on the
// volume holding path.
func diskFree(path string) (uint64, error) {
	var st syscall.Statfs_t
	if err := syscall.Statfs(path, &st); err != nil {
		return 0, err
	}
	return uint64(st.Bavail) * uint64(st.Bsize), nil
}
