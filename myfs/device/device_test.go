package device_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dargueta/myfs/device"
	"github.com/dargueta/myfs/internal/testimage"
)

func TestReadWriteWordRoundTrip(t *testing.T) {
	img := testimage.NewBlank(4096 * 4)

	require.NoError(t, device.WriteWord(img, 0, 4096, 2, 5, 0xCAFEBABE))
	got, err := device.ReadWord(img, 0, 4096, 2, 5)
	require.NoError(t, err)
	assert.Equal(t, uint32(0xCAFEBABE), got)

	// Neighboring slots are untouched.
	neighbor, err := device.ReadWord(img, 0, 4096, 2, 6)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), neighbor)
}

func TestReadWriteRange(t *testing.T) {
	img := testimage.NewBlank(64)
	payload := []byte("hello, range")

	require.NoError(t, device.WriteRange(img, 10, payload))
	got, err := device.ReadRange(img, 10, len(payload))
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}
