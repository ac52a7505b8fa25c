//go:build !unix

package session

// lockDir is a no-op where flock is unavailable; the in-process mutex still
// serializes writers sharing a Session.
func lockDir(string) (func(), error) {
	return func() {}, nil
}
