package util

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// JSONStringify converts any value to a JSON string.
func JSONStringify(val any) string {
	buf, _ := json.Marshal(val)
	return string(buf)
}

// Exists returns true if the filename or directory specified by fn exists.
func Exists(fn string) bool {
	if _, err := os.Stat(fn); os.IsNotExist(err) {
		return false
	}
	return true
}

// IsLocalhost returns true if the URL is localhost or 127.0.0.1 or 0.0.0.0.
func IsLocalhost(url string) bool {
	return strings.Contains(url, "localhost") || strings.Contains(url, "127.0.0.1") || strings.Contains(url, "0.0.0.0")
}

// EnsureDir creates dir if missing and checks that it can be written to.
func EnsureDir(dir string) error {
	if !Exists(dir) {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("error creating directory %s: %w", dir, err)
		}
	}
	if ok, err := IsDirWritable(dir); !ok {
		return fmt.Errorf("directory %s is not writable: %w", dir, err)
	}
	return nil
}

// Limit returns the first n values or all of them if n is 0 or larger than the slice.
func Limit[T any](vals []T, n int) []T {
	if n <= 0 || n >= len(vals) {
		return vals
	}
	return vals[:n]
}
