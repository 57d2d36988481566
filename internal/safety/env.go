package safety

import "strings"

// scrubbedEnvVars are stripped from every subprocess environment the stdio
// transport spawns: proxy variables could redirect a
// "local" stdio server's outbound calls through an attacker-controlled
// host, and LD_PRELOAD/LD_LIBRARY_PATH can hijack the child's dynamic
// linking outright.
var scrubbedEnvVars = []string{
	"HTTP_PROXY",
	"HTTPS_PROXY",
	"ALL_PROXY",
	"NO_PROXY",
	"http_proxy",
	"https_proxy",
	"all_proxy",
	"no_proxy",
	"LD_PRELOAD",
	"LD_LIBRARY_PATH",
}

// ScrubEnv filters env (as returned by os.Environ) down to a copy with
// every scrubbedEnvVars entry removed.
func ScrubEnv(env []string) []string {
	out := make([]string, 0, len(env))
	for _, kv := range env {
		name, _, ok := strings.Cut(kv, "=")
		if !ok {
			out = append(out, kv)
			continue
		}
		if isScrubbed(name) {
			continue
		}
		out = append(out, kv)
	}
	return out
}

func isScrubbed(name string) bool {
	for _, s := range scrubbedEnvVars {
		if strings.EqualFold(name, s) {
			return true
		}
	}
	return false
}
