//go:build unix

package util

import (
	"fmt"

	"golang.org/x/sys/unix"
)

func writable(dir string) error {
	if err := unix.Access(dir, unix.W_OK); err != nil {
		return fmt.Errorf("%s is not writable: %w", dir, err)
	}
	return nil
}
