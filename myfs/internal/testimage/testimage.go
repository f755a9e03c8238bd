// Package testimage provides helpers for building in-memory backing images
// for use in tests, instead of creating temp files on disk.
package testimage

import (
	"crypto/rand"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/bytesextra"
)

// NewBlank returns a zero-filled image of exactly `size` bytes wrapped as an
// [io.ReadWriteSeeker]. Writes never change the length of the image.
func NewBlank(size int) io.ReadWriteSeeker {
	return bytesextra.NewReadWriteSeeker(make([]byte, size))
}

// NewRandom returns an image of exactly `size` bytes, filled with random data,
// wrapped as an [io.ReadWriteSeeker]. Useful for exercising code paths that
// must tolerate pre-existing garbage in freshly-allocated blocks (myfs never
// zero-fills on grow, see [SPEC_FULL.md]).
func NewRandom(t *testing.T, size int) io.ReadWriteSeeker {
	data := make([]byte, size)
	_, err := rand.Read(data)
	require.NoError(t, err, "failed to generate %d random bytes", size)
	return bytesextra.NewReadWriteSeeker(data)
}
