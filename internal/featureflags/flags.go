// Package featureflags reads operator toggles from FLAG_<NAME> variables
package featureflags

import (
	"os"
	"strings"
)

// SkipMigrations stops the server from migrating on startup. The schema is
// then only checked, and grievancectl migrate up is expected to run first.
const SkipMigrations = "skip_migrations"

// Enabled reports whether FLAG_<NAME> is set to a true value
func Enabled(name string) bool {
	return parse(os.Getenv(envKey(name)))
}

func envKey(name string) string {
	return "FLAG_" + strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
}

func parse(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
