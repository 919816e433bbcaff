package planfile

import "testing"

// SetMaxBodySize lowers the body size accepted by Read for the duration of
// the test.
func SetMaxBodySize(t testing.TB, n int64) {
	prev := maxBodySize
	maxBodySize = n
	t.Cleanup(func() { maxBodySize = prev })
}
