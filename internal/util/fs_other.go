//go:build !unix

package util

import (
	"fmt"
	"os"
)

func writable(dir string) error {
	f, err := os.CreateTemp(dir, ".clipforge-probe-*")
	if err != nil {
		return fmt.Errorf("%s is not writable: %w", dir, err)
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}
