// Package testutil provides helpers for examples and tests.
package testutil

import (
	"os"
	"path/filepath"
)

// RemoveAll removes the path and any children. Errors are ignored.
// Use for defer cleanup in examples and tests.
//
// Usage:
//
//	defer testutil.RemoveAll(tmpDir)
func RemoveAll(path string) { _ = os.RemoveAll(path) }

// BuildTree creates an empty regular file at each slash-separated path under
// root, creating parent directories as needed. A path ending in "/" creates
// an empty directory instead.
//
// Usage:
//
//	err := testutil.BuildTree(tmpDir,
//	    "rainfall/data_map/2021/rainfall_data_map_2021_01.tif",
//	    "rainfall/data_map/2022/",
//	)
func BuildTree(root string, paths ...string) error {
	for _, p := range paths {
		full := filepath.Join(root, filepath.FromSlash(p))
		if len(p) > 0 && p[len(p)-1] == '/' {
			if err := os.MkdirAll(full, 0o755); err != nil {
				return err
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(full, nil, 0o644); err != nil {
			return err
		}
	}
	return nil
}
