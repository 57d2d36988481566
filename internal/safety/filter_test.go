package safety

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilter_BlocksDangerousURL(t *testing.T) {
	dir := t.TempDir()
	sb, err := NewSandbox(dir)
	require.NoError(t, err)
	f := NewFilter(sb)

	d := f.Check(map[string]interface{}{"url": "https://evil.example/x", "output_path": "/etc/passwd"})
	assert.Equal(t, ActionBlock, d.Action)
	assert.Contains(t, d.Reason, "url")
}

func TestFilter_SanitizesEscapingPath(t *testing.T) {
	dir := t.TempDir()
	sb, err := NewSandbox(dir)
	require.NoError(t, err)
	f := NewFilter(sb)

	d := f.Check(map[string]interface{}{"output_path": "/etc/passwd"})
	require.Equal(t, ActionSanitize, d.Action)
	assert.Equal(t, filepath.Join(dir, "passwd"), d.SanitizedArgs["output_path"])
}

func TestFilter_AllowsCleanArgs(t *testing.T) {
	dir := t.TempDir()
	sb, err := NewSandbox(dir)
	require.NoError(t, err)
	f := NewFilter(sb)

	d := f.Check(map[string]interface{}{"name": "widget", "count": float64(3)})
	assert.Equal(t, ActionAllow, d.Action)
}

func TestFilter_NoSandboxSkipsSanitization(t *testing.T) {
	f := NewFilter(nil)
	d := f.Check(map[string]interface{}{"path": "/etc/passwd"})
	assert.Equal(t, ActionAllow, d.Action)
}
