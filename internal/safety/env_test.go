package safety

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScrubEnv_StripsProxyAndLoaderVars(t *testing.T) {
	in := []string{
		"PATH=/usr/bin",
		"HTTP_PROXY=http://evil:8080",
		"https_proxy=http://evil:8080",
		"LD_PRELOAD=/tmp/evil.so",
		"HOME=/home/user",
	}
	out := ScrubEnv(in)
	assert.Contains(t, out, "PATH=/usr/bin")
	assert.Contains(t, out, "HOME=/home/user")
	assert.NotContains(t, out, "HTTP_PROXY=http://evil:8080")
	assert.NotContains(t, out, "https_proxy=http://evil:8080")
	assert.NotContains(t, out, "LD_PRELOAD=/tmp/evil.so")
}

func TestScrubEnv_PreservesMalformedEntries(t *testing.T) {
	out := ScrubEnv([]string{"NOTANASSIGNMENT"})
	assert.Contains(t, out, "NOTANASSIGNMENT")
}
