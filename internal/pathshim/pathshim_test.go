package pathshim

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireWritesOneShimPerBinary(t *testing.T) {
	h, err := Acquire()
	require.NoError(t, err)
	defer h.Release()

	for _, name := range ShimmedBinaries {
		info, err := os.Stat(filepath.Join(h.Dir, shimName(name)))
		require.NoError(t, err)
		assert.False(t, info.IsDir())
	}
}

func TestReleaseIsIdempotent(t *testing.T) {
	h, err := Acquire()
	require.NoError(t, err)

	h.Release()
	_, statErr := os.Stat(h.Dir)
	assert.True(t, os.IsNotExist(statErr))

	assert.NotPanics(t, func() { h.Release() })
}

func TestPrependToExistingPath(t *testing.T) {
	h, err := Acquire()
	require.NoError(t, err)
	defer h.Release()

	env := h.PrependTo([]string{"FOO=bar", "PATH=/usr/bin"})
	found := false
	for _, kv := range env {
		if kv == "PATH="+h.Dir+string(os.PathListSeparator)+"/usr/bin" {
			found = true
		}
	}
	assert.True(t, found)
}
