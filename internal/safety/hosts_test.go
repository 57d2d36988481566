package safety

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHostAllowList_DefaultsToLocalOnly(t *testing.T) {
	h := NewHostAllowList(nil)
	assert.True(t, h.Allowed("localhost"))
	assert.True(t, h.Allowed("127.0.0.1"))
	assert.False(t, h.Allowed("example.com"))
}

func TestHostAllowList_WildcardPattern(t *testing.T) {
	h := NewHostAllowList([]string{"*.internal.example.com"})
	assert.True(t, h.Allowed("api.internal.example.com"))
	assert.False(t, h.Allowed("api.external.example.com"))
}

func TestHostAllowList_CheckURL(t *testing.T) {
	h := NewHostAllowList([]string{"allowed.test"})
	allowed, host, err := h.CheckURL("https://allowed.test/path")
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, "allowed.test", host)

	allowed, host, err = h.CheckURL("https://blocked.test/path")
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Equal(t, "blocked.test", host)
}

func TestSameOrigin(t *testing.T) {
	assert.True(t, SameOrigin("https://a.test/x", "https://a.test/y"))
	assert.False(t, SameOrigin("https://a.test/x", "https://b.test/y"))
}
