//go:build !(aix || darwin || dragonfly || freebsd || linux || netbsd || openbsd || solaris)

package source

import (
	"fmt"
	"os"
)

// mmapFile reads the whole file on platforms without mmap support.
func mmapFile(filename string) ([]byte, func() error, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read file: %w", err)
	}
	return data, func() error { return nil }, nil
}
