package settings

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAccessors(t *testing.T) {
	s := FromMap(map[string]string{
		" RPC.Max_Batch ": " 25 ",
		"cache.enabled":   "false",
		"cache.ttl":       "90s",
		"broken.int":      "ten",
		"site.name":       "Odyssey",
	})

	assert.Equal(t, 25, s.Int(KeyRPCMaxBatch, 50))
	assert.Equal(t, 7, s.Int("missing", 7))
	assert.Equal(t, 3, s.Int("broken.int", 3))
	assert.False(t, s.Bool("cache.enabled", true))
	assert.True(t, s.Bool("missing", true))
	assert.Equal(t, 90*time.Second, s.Duration("cache.ttl", time.Minute))
	assert.Equal(t, time.Minute, s.Duration("site.name", time.Minute))
	assert.Equal(t, "Odyssey", s.String("site.name", ""))
	assert.Equal(t, []string{"broken.int", "cache.enabled", "cache.ttl", "rpc.max_batch", "site.name"}, s.Keys())
	assert.False(t, s.LoadedAt().IsZero())
}

func TestNilSettingsUseDefaults(t *testing.T) {
	var s *Settings
	assert.Equal(t, 50, s.Int(KeyRPCMaxBatch, 50))
	assert.Equal(t, "x", s.String("a", "x"))
	assert.Nil(t, s.Keys())
}
