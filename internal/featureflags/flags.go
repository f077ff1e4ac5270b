package featureflags

import (
	"os"
	"strings"
)

// Flags are read from env as FLAG_<NAME>=true/1/yes/on (case-insensitive).
// Known flags: FLAG_NOTIFICATIONS (outbox dispatch + websocket feed, on by
// default; set to false to disable), FLAG_STRICT_LOGIN_LIMITS (tighter
// per-IP login rate limit, off by default).

// Enabled returns true if a flag is explicitly enabled
func Enabled(name string) bool {
	return EnabledDefault(name, false)
}

// EnabledDefault reads a flag, falling back to def when the env var is unset
func EnabledDefault(name string, def bool) bool {
	v, ok := os.LookupEnv("FLAG_" + strings.ToUpper(name))
	if !ok || v == "" {
		return def
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
