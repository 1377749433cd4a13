//go:build !unix

package mmfile

import "os"

// Map reads the entire image when mmap is not available.
func Map(path string) ([]byte, func() error, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, noop, err
	}
	return data, noop, nil
}
