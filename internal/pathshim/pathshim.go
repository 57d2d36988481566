// Package pathshim implements a scoped PATH shim: a directory of no-op
// executables that neutralizes browser/launcher binaries the safety
// filter's detector flags, without ever mutating the process-wide PATH
// implicitly. Acquire returns a Handle whose Release removes the shim
// directory; there is no package-level
// install that leaks into every other test in the process.
package pathshim

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// ShimmedBinaries are the browser/launcher names the safety filter's
// dangerous-pattern detector recognizes (internal/safety's
// dangerousPatterns "browser launchers" group) and that this shim
// neutralizes with a no-op stand-in when enable_system_blocking is set.
var ShimmedBinaries = []string{
	"xdg-open",
	"open",
	"start",
	"chrome",
	"firefox",
	"msedge",
	"safari",
}

// shimScript is the body of every shim executable: it does nothing and
// exits 0, so a tool call that tries to launch a browser silently no-ops
// instead of reaching a real GUI or network endpoint.
const shimScript = "#!/bin/sh\nexit 0\n"

// Handle is an acquired shim directory. Release removes it and is safe to
// call more than once.
type Handle struct {
	Dir     string
	release func()
}

// Release tears down the shim directory. Idempotent.
func (h *Handle) Release() {
	if h.release != nil {
		h.release()
	}
}

// Acquire creates a temp directory populated with one no-op executable per
// ShimmedBinaries entry. Callers prepend Handle.Dir to the PATH of any
// subprocess they spawn (e.g. via supervisor.StartConfig.Env); the package
// never touches the current process's own PATH.
func Acquire() (*Handle, error) {
	dir, err := os.MkdirTemp("", "mcp-fuzzer-pathshim-*")
	if err != nil {
		return nil, fmt.Errorf("pathshim: creating shim dir: %w", err)
	}

	for _, name := range ShimmedBinaries {
		target := filepath.Join(dir, shimName(name))
		if err := os.WriteFile(target, []byte(shimScript), 0o755); err != nil {
			os.RemoveAll(dir)
			return nil, fmt.Errorf("pathshim: writing shim %q: %w", name, err)
		}
	}

	return &Handle{
		Dir:     dir,
		release: func() { _ = os.RemoveAll(dir) },
	}, nil
}

func shimName(name string) string {
	if runtime.GOOS == "windows" {
		return name + ".bat"
	}
	return name
}

// PrependTo returns a copy of env with this shim's directory prepended to
// PATH, the way internal/supervisor's Lifecycle.Start consumes it when
// safety.enable_system_blocking is set.
func (h *Handle) PrependTo(env []string) []string {
	out := make([]string, 0, len(env)+1)
	found := false
	for _, kv := range env {
		if len(kv) >= 5 && kv[:5] == "PATH=" {
			out = append(out, "PATH="+h.Dir+string(os.PathListSeparator)+kv[5:])
			found = true
			continue
		}
		out = append(out, kv)
	}
	if !found {
		out = append(out, "PATH="+h.Dir)
	}
	return out
}
