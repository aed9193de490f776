//go:build aix || darwin || dragonfly || freebsd || linux || netbsd || openbsd || solaris

package source

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// mmapFile maps a file read-only. The returned function unmaps it; the
// data must not be used afterwards.
func mmapFile(filename string) ([]byte, func() error, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to stat file: %w", err)
	}
	size := stat.Size()
	if size == 0 {
		return []byte{}, func() error { return nil }, nil
	}

	// The mapping outlives the descriptor, so f can be closed right away.
	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to mmap file: %w", err)
	}
	return data, func() error { return unix.Munmap(data) }, nil
}
