// Package safety implements the gating pipeline every tool invocation
// passes through before it reaches a transport: a
// dangerous-argument detector, a filesystem sandbox, a host allow-list, and
// subprocess environment scrubbing.
package safety

import (
	"regexp"
	"strconv"
	"strings"
)

// dangerousPatterns is the regex set the detector matches against every
// string leaf of an argument tree. Grounded on the teacher's
// internal/ai/safety.BlockedCommands / ReadOnlyPatterns union, adapted from
// "commands a remediation engine must refuse" to "arguments an MCP tool
// call must never be allowed to carry unexamined"
var dangerousPatterns = []*regexp.Regexp{
	// URL schemes.
	regexp.MustCompile(`(?i)\bhttps?://`),
	regexp.MustCompile(`(?i)\bfile://`),
	regexp.MustCompile(`(?i)\bftp://`),
	// Script injection.
	regexp.MustCompile(`(?i)<script`),
	regexp.MustCompile(`(?i)javascript:`),
	regexp.MustCompile(`(?i)onerror\s*=`),
	// Command patterns.
	regexp.MustCompile(`(?i)\brm\s+-rf\b`),
	regexp.MustCompile(`(?i)\bsudo\b`),
	regexp.MustCompile(`(?i)\bshutdown\b`),
	regexp.MustCompile(`(?i)\bmkfs\b`),
	regexp.MustCompile(`:\(\)\s*\{\s*:\s*\|\s*:\s*&\s*\}\s*;\s*:`),
	// Browser/app launchers.
	regexp.MustCompile(`(?i)\bxdg-open\b`),
	regexp.MustCompile(`(?i)\bopen\s+-a\b`),
	regexp.MustCompile(`(?i)\bstart\s+(chrome|firefox|msedge)\b`),
	regexp.MustCompile(`(?i)\b(chrome|firefox|msedge|safari)\.exe\b`),
}

// DangerReason describes why a value tripped the detector.
type DangerReason struct {
	Path    string // dotted path into the argument tree
	Pattern string
}

// DetectDangerousStrings walks every string leaf in args and reports each
// match against dangerousPatterns
func DetectDangerousStrings(args map[string]interface{}) []DangerReason {
	var reasons []DangerReason
	walkStrings(args, "", func(path, value string) {
		for _, pat := range dangerousPatterns {
			if pat.MatchString(value) {
				reasons = append(reasons, DangerReason{Path: path, Pattern: pat.String()})
			}
		}
	})
	return reasons
}

func walkStrings(v interface{}, path string, visit func(path, value string)) {
	switch t := v.(type) {
	case string:
		visit(path, t)
	case map[string]interface{}:
		for k, val := range t {
			childPath := k
			if path != "" {
				childPath = path + "." + k
			}
			walkStrings(val, childPath, visit)
		}
	case []interface{}:
		for i, val := range t {
			walkStrings(val, indexPath(path, i), visit)
		}
	}
}

func indexPath(path string, i int) string {
	idx := "[" + strconv.Itoa(i) + "]"
	if path == "" {
		return idx
	}
	return path + idx
}

// looksLikePath is a heuristic used by the filesystem sanitizer: a string
// is treated as a candidate filesystem path if it contains a "/" or "\"
// separator or starts with "~". A bare drive letter such as "C:" is not
// recognized on its own.
func looksLikePath(s string) bool {
	if s == "" {
		return false
	}
	if strings.ContainsAny(s, "/\\") {
		return true
	}
	if strings.HasPrefix(s, "~") {
		return true
	}
	return false
}
