package version

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetDefaults(t *testing.T) {
	info := Get()
	assert.Equal(t, "dev", info.Version)
	assert.Equal(t, "dev", info.CommitHash)
	assert.NotEmpty(t, info.GoVersion)
	assert.Contains(t, info.Platform, "/")
}

func TestStringMentionsBinary(t *testing.T) {
	info := Info{Version: "1.2.0", CommitHash: "abc1234", BuildTime: "2026-08-30"}
	s := info.String()
	assert.True(t, strings.HasPrefix(s, "exportd 1.2.0"))
	assert.Contains(t, s, "abc1234")

	// Untagged builds fall back to dev
	assert.True(t, strings.HasPrefix(Info{}.String(), "exportd dev"))
}

func TestShortTruncatesHash(t *testing.T) {
	assert.Equal(t, "abc1234", Info{CommitHash: "abc1234def5678"}.Short())
	assert.Equal(t, "dev", Info{CommitHash: "dev"}.Short())
}
