package safety

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Sandbox enforces that every filesystem path reachable from a tool
// call's arguments resolves inside fs_root. It is immutable after
// construction.
type Sandbox struct {
	Root string
}

// NewSandbox resolves root to an absolute, symlink-free path so later
// containment checks can't be fooled by ".." segments or a symlinked root.
func NewSandbox(root string) (*Sandbox, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("safety: resolving fs_root: %w", err)
	}
	resolved, err := canonicalize(abs)
	if err != nil {
		return nil, fmt.Errorf("safety: canonicalizing fs_root: %w", err)
	}
	return &Sandbox{Root: resolved}, nil
}

// canonicalize resolves symlinks where possible; a path that doesn't exist
// yet (common for tool-supplied output paths) falls back to Clean, which is
// still enough to reject ".." traversal.
func canonicalize(path string) (string, error) {
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		if os.IsNotExist(err) {
			return filepath.Clean(path), nil
		}
		return "", err
	}
	return resolved, nil
}

// Contains reports whether path's canonical form is fs_root or a
// descendant of it.
func (s *Sandbox) Contains(path string) bool {
	canon, err := s.Canonical(path)
	if err != nil {
		return false
	}
	return canon == s.Root || strings.HasPrefix(canon, s.Root+string(filepath.Separator))
}

// Canonical resolves path (absolute or relative to fs_root) to its
// canonical absolute form, following symlinks where the path exists.
func (s *Sandbox) Canonical(path string) (string, error) {
	abs := path
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(s.Root, abs)
	}
	return canonicalize(abs)
}

// SafeDefault returns the rewrite target for a path that escapes the
// sandbox: fs_root joined with a safe basename.
func (s *Sandbox) SafeDefault(originalName string) string {
	base := filepath.Base(originalName)
	if base == "" || base == "." || base == string(filepath.Separator) {
		base = "sanitized-output"
	}
	return filepath.Join(s.Root, base)
}

// SanitizePaths walks args and rewrites any string that looks like a
// filesystem path resolving outside fs_root to a safe default inside it.
// Returns the (possibly unchanged) args and whether anything was rewritten.
func (s *Sandbox) SanitizePaths(args map[string]interface{}) (map[string]interface{}, bool) {
	changed := false
	out := sanitizeValue(args, s, &changed).(map[string]interface{})
	return out, changed
}

func sanitizeValue(v interface{}, s *Sandbox, changed *bool) interface{} {
	switch t := v.(type) {
	case string:
		if !looksLikePath(t) {
			return t
		}
		if s.Contains(t) {
			return t
		}
		*changed = true
		return s.SafeDefault(t)
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[k] = sanitizeValue(val, s, changed)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, val := range t {
			out[i] = sanitizeValue(val, s, changed)
		}
		return out
	default:
		return v
	}
}
