package build

import (
	"os"
	"path/filepath"
)

// TempDir joins the relevant parts of a testing path into a single path
// rooted under the OS temp directory, removing any stale directory left
// behind by a previous run of the same test.
func TempDir(parts ...string) string {
	path := filepath.Join(append([]string{os.TempDir(), "walletd-sync-testing"}, parts...)...)
	os.RemoveAll(path)
	return path
}
