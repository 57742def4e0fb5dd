// Package sbuf provides reusable byte buffers that grow to the largest
// blob seen for their role and are never shrunk.
package sbuf

import (
	"errors"
	"fmt"
	"math"
)

// ErrOutOfMemory is returned when a buffer cannot be grown. It is distinct
// from every channel error so callers can answer with a resource error.
var ErrOutOfMemory = errors.New("sbuf: out of memory")

// DefaultLimit bounds a buffer when no limit is configured. Sizes come
// from peer-supplied headers, and an allocation the machine cannot back
// aborts the process instead of panicking, so every buffer is bounded.
const DefaultLimit = 16 << 20

// Buffer is an owned growable byte buffer. The zero value is ready to use.
// A Buffer is not safe for concurrent use.
type Buffer struct {
	buf []byte
}

// Ensure returns a slice of exactly n bytes backed by the buffer's storage,
// growing the storage when it is smaller than n. Existing contents are not
// preserved across growth and bytes the caller does not overwrite are
// indeterminate. Ensure(0) returns nil without allocating.
//
// limit bounds the storage size; zero selects DefaultLimit.
func (b *Buffer) Ensure(n uint64, limit uint64) ([]byte, error) {
	if n == 0 {
		return nil, nil
	}
	if uint64(len(b.buf)) >= n {
		return b.buf[:n], nil
	}
	if limit == 0 {
		limit = DefaultLimit
	}
	if n > limit {
		return nil, fmt.Errorf("%w: %d bytes exceeds limit %d", ErrOutOfMemory, n, limit)
	}
	if n > math.MaxInt {
		return nil, fmt.Errorf("%w: %d bytes exceeds address space", ErrOutOfMemory, n)
	}

	grown, err := allocate(int(n))
	if err != nil {
		return nil, err
	}
	b.buf = grown
	return b.buf, nil
}

// Cap returns the current storage size.
func (b *Buffer) Cap() int {
	return len(b.buf)
}

// allocate converts the runtime's recoverable allocation panic
// ("makeslice: len out of range") into ErrOutOfMemory. A size in range
// that the machine cannot back is fatal; the limit keeps n below that.
func allocate(n int) (buf []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			buf = nil
			err = fmt.Errorf("%w: %d bytes: %v", ErrOutOfMemory, n, r)
		}
	}()
	return make([]byte, n), nil
}
