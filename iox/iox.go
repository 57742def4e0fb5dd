// Package iox provides cleanup helpers for owned handles: channels,
// passed descriptors and loggers.
package iox

import (
	"io"
	"os"
)

// DiscardClose closes c and discards the error.
//
//	defer iox.DiscardClose(ch)
func DiscardClose(c io.Closer) { _ = c.Close() }

// CloseFunc returns a cleanup function that closes c, for t.Cleanup.
func CloseFunc(c io.Closer) func() {
	return func() { _ = c.Close() }
}

// DiscardErr calls fn and discards the returned error (logger Sync).
func DiscardErr(fn func() error) { _ = fn() }

// ReleaseFile closes a passed descriptor that no one took ownership of.
// A nil file is ignored. Reports whether a descriptor was closed.
func ReleaseFile(f *os.File) bool {
	if f == nil {
		return false
	}
	_ = f.Close()
	return true
}
