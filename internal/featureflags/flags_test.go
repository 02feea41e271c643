package featureflags

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnabled(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"true", true},
		{"TRUE", true},
		{" yes ", true},
		{"1", true},
		{"on", true},
		{"", false},
		{"0", false},
		{"off", false},
		{"enabled", false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv("FLAG_SKIP_MIGRATIONS", tt.value)
			assert.Equal(t, tt.want, Enabled(SkipMigrations))
		})
	}
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "FLAG_SKIP_MIGRATIONS", envKey("skip-migrations"))
	assert.Equal(t, "FLAG_SKIP_MIGRATIONS", envKey(SkipMigrations))
}
