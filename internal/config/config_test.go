package config

import (
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/affinitylabs/matchengine/internal/matching"
)

func clearMatchingEnv(t *testing.T) {
	t.Helper()
	keys := []string{
		"MATCHING_BATCH_SIZE", "MATCHING_MAX_CANDIDATES", "MATCHING_SMALL_TOPK",
		"MATCHING_LARGE_TOPK", "MATCHING_GRAPH_HOPS", "MATCHING_COOLDOWN_DAYS",
		"MATCHING_RELIABILITY_WEIGHT", "MATCHING_MIN_AVAIL_MIN", "MATCH_DOMAINS",
		"MATCHING_AUTO_SCHEDULE", "MATCH_REQUIRE_SAME_CITY", "MATCH_REQUIRE_SHARED_INTERESTS",
		"MATCHING_MAX_TICKS", "MATCHING_CRON_MAX_MS", "MATCHING_LOCK_MS",
		"MATCHING_LLM_MODE", "PRIORITY_MATCH_WINDOW_HOURS",
	}
	for _, k := range keys {
		os.Unsetenv(k)
	}
}

func TestLoadFromEnvDefaults(t *testing.T) {
	clearMatchingEnv(t)
	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, 25, cfg.BatchSize)
	assert.Equal(t, 60, cfg.MaxCandidates)
	assert.Equal(t, 12, cfg.SmallPassTopK)
	assert.Equal(t, 6, cfg.LargePassTopK)
	assert.Equal(t, 2, cfg.GraphHops)
	assert.Equal(t, 30, cfg.CooldownDays)
	assert.Equal(t, 1.0, cfg.ReliabilityWeight)
	assert.Equal(t, 120, cfg.MinAvailabilityMinutes)
	assert.Equal(t, []matching.Domain{matching.DomainGeneral}, cfg.MatchDomains)
	assert.False(t, cfg.AutoSchedule)
	assert.True(t, cfg.RequireSameCity)
	assert.True(t, cfg.RequireSharedInterests)
	assert.Equal(t, 6, cfg.MaxTicks)
	assert.Equal(t, int64(240_000), cfg.MaxRunMs)
	assert.Equal(t, LLMModeNone, cfg.LLMMode)
}

func TestLoadFromEnvOverrides(t *testing.T) {
	clearMatchingEnv(t)
	t.Setenv("MATCHING_BATCH_SIZE", "10")
	t.Setenv("MATCH_DOMAINS", "dating,friendship")
	t.Setenv("MATCH_REQUIRE_SAME_CITY", "false")
	t.Setenv("MATCHING_LLM_MODE", "openai")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.BatchSize)
	assert.Equal(t, []matching.Domain{matching.DomainDating, matching.DomainFriendship}, cfg.MatchDomains)
	assert.False(t, cfg.RequireSameCity)
	assert.Equal(t, LLMModeOpenAI, cfg.LLMMode)
}

func TestLoadFromEnvInvalidInt(t *testing.T) {
	clearMatchingEnv(t)
	t.Setenv("MATCHING_BATCH_SIZE", "not-a-number")
	_, err := LoadFromEnv()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidValue))
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "MATCHING_BATCH_SIZE", verr.Field)
}

func TestLoadFromEnvInvalidDomain(t *testing.T) {
	clearMatchingEnv(t)
	t.Setenv("MATCH_DOMAINS", "astrology")
	_, err := LoadFromEnv()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidValue))
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "MATCH_DOMAINS", verr.Field)
}

func TestLoadFromEnvInvalidLLMMode(t *testing.T) {
	clearMatchingEnv(t)
	t.Setenv("MATCHING_LLM_MODE", "magic")
	_, err := LoadFromEnv()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidValue))
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "MATCHING_LLM_MODE", verr.Field)
}

func TestEngineOptionsTranslatesConfig(t *testing.T) {
	cfg := Config{
		BatchSize:              5,
		MaxCandidates:          7,
		SmallPassTopK:          3,
		LargePassTopK:          2,
		GraphHops:              1,
		CooldownDays:           14,
		ReliabilityWeight:      0.5,
		MinAvailabilityMinutes: 60,
		MatchDomains:           []matching.Domain{matching.DomainBusiness},
		AutoSchedule:           true,
		RequireSameCity:        false,
		RequireSharedInterests: false,
		MaxTicks:               2,
		MaxRunMs:               1000,
	}
	opts := cfg.EngineOptions()
	assert.Equal(t, 5, opts.BatchSize)
	assert.Equal(t, []matching.Domain{matching.DomainBusiness}, opts.MatchDomains)
	assert.True(t, opts.AutoScheduleMatches)
	require.NotNil(t, opts.RequireSameCity)
	assert.False(t, *opts.RequireSameCity)
	require.NotNil(t, opts.MinAvailabilityMinutes)
	assert.Equal(t, 60, *opts.MinAvailabilityMinutes)
}
