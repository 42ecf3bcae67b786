// Package config loads matchengined's tunables from the environment,
// mirroring the recognized-options table: defaults live here so the
// engine itself (internal/matching) never depends on environment
// parsing (pkg/database's LoadConfigFromEnv is the model for this file).
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/affinitylabs/matchengine/internal/matching"
)

// Config holds every tunable the host process reads from the
// environment before invoking a tick.
type Config struct {
	BatchSize              int
	MaxCandidates          int
	SmallPassTopK          int
	LargePassTopK          int
	GraphHops              int
	CooldownDays           int
	ReliabilityWeight      float64
	MinAvailabilityMinutes int

	MatchDomains []matching.Domain

	AutoSchedule           bool
	RequireSameCity        bool
	RequireSharedInterests bool

	MaxTicks   int
	MaxRunMs   int64
	LockMs     int64
	LLMMode    string // "none", "heuristic", "openai", or "grpc"

	PriorityMatchWindowHours int
}

// LLM provider modes recognized by MATCHING_LLM_MODE. "none" is the
// spec-default: Dependencies.LLM stays nil and the engine uses its
// built-in heuristic math directly. "heuristic" is the same math reached
// through an explicit LLMProvider (internal/llmprovider.Heuristic)
// instead, for hosts that want MATCHING_LLM_MODE to always name a
// concrete provider. "grpc" is a SPEC_FULL.md addition alongside the
// spec's {none, heuristic, openai} enum, for hosts running their own
// scoring service.
const (
	LLMModeNone      = "none"
	LLMModeHeuristic = "heuristic"
	LLMModeOpenAI    = "openai"
	LLMModeGRPC      = "grpc"
)

// LoadFromEnv loads Config from the environment, falling back to the
// defaults named in the recognized-options table. Numeric/bool env vars
// that fail to parse return an error; unset ones use the default.
func LoadFromEnv() (Config, error) {
	cfg := Config{}

	var err error
	if cfg.BatchSize, err = getEnvInt("MATCHING_BATCH_SIZE", 25); err != nil {
		return Config{}, err
	}
	if cfg.MaxCandidates, err = getEnvInt("MATCHING_MAX_CANDIDATES", 60); err != nil {
		return Config{}, err
	}
	if cfg.SmallPassTopK, err = getEnvInt("MATCHING_SMALL_TOPK", 12); err != nil {
		return Config{}, err
	}
	if cfg.LargePassTopK, err = getEnvInt("MATCHING_LARGE_TOPK", 6); err != nil {
		return Config{}, err
	}
	if cfg.GraphHops, err = getEnvInt("MATCHING_GRAPH_HOPS", 2); err != nil {
		return Config{}, err
	}
	if cfg.CooldownDays, err = getEnvInt("MATCHING_COOLDOWN_DAYS", 30); err != nil {
		return Config{}, err
	}
	if cfg.ReliabilityWeight, err = getEnvFloat("MATCHING_RELIABILITY_WEIGHT", 1.0); err != nil {
		return Config{}, err
	}
	if cfg.MinAvailabilityMinutes, err = getEnvInt("MATCHING_MIN_AVAIL_MIN", 120); err != nil {
		return Config{}, err
	}
	if cfg.MaxTicks, err = getEnvInt("MATCHING_MAX_TICKS", 6); err != nil {
		return Config{}, err
	}
	if cfg.MaxRunMs, err = getEnvInt64("MATCHING_CRON_MAX_MS", 240_000); err != nil {
		return Config{}, err
	}
	if cfg.LockMs, err = getEnvInt64("MATCHING_LOCK_MS", cfg.MaxRunMs+60_000); err != nil {
		return Config{}, err
	}
	if cfg.PriorityMatchWindowHours, err = getEnvInt("PRIORITY_MATCH_WINDOW_HOURS", 24); err != nil {
		return Config{}, err
	}
	if cfg.AutoSchedule, err = getEnvBool("MATCHING_AUTO_SCHEDULE", false); err != nil {
		return Config{}, err
	}
	if cfg.RequireSameCity, err = getEnvBool("MATCH_REQUIRE_SAME_CITY", true); err != nil {
		return Config{}, err
	}
	if cfg.RequireSharedInterests, err = getEnvBool("MATCH_REQUIRE_SHARED_INTERESTS", true); err != nil {
		return Config{}, err
	}

	cfg.MatchDomains, err = parseDomains(getEnvOrDefault("MATCH_DOMAINS", "general"))
	if err != nil {
		return Config{}, err
	}

	cfg.LLMMode = strings.ToLower(getEnvOrDefault("MATCHING_LLM_MODE", LLMModeNone))
	switch cfg.LLMMode {
	case LLMModeNone, LLMModeHeuristic, LLMModeOpenAI, LLMModeGRPC:
	default:
		return Config{}, NewValidationError("MATCHING_LLM_MODE", fmt.Errorf("unrecognized mode %q", cfg.LLMMode))
	}

	return cfg, nil
}

// EngineOptions translates Config into the matching.EngineOptions the
// pure engine consumes for one tick, leaving host-supplied id lists
// (TargetPersonaIds, PriorityIds, PrioritySchedulePersonaIds,
// FilterPersonaIds) for the caller to fill in from the store.
func (c Config) EngineOptions() matching.EngineOptions {
	sameCity := c.RequireSameCity
	sharedInterests := c.RequireSharedInterests
	return matching.EngineOptions{
		BatchSize:              c.BatchSize,
		MaxCandidates:          c.MaxCandidates,
		SmallPassTopK:          c.SmallPassTopK,
		LargePassTopK:          c.LargePassTopK,
		GraphHops:              c.GraphHops,
		MatchCooldownDays:      c.CooldownDays,
		ReliabilityWeight:      c.ReliabilityWeight,
		MinAvailabilityMinutes: &c.MinAvailabilityMinutes,
		MatchDomains:           c.MatchDomains,
		AutoScheduleMatches:    c.AutoSchedule,
		RequireSameCity:        &sameCity,
		RequireSharedInterests: &sharedInterests,
		MaxRunMs:               c.MaxRunMs,
		MaxTicks:               c.MaxTicks,
	}
}

func parseDomains(raw string) ([]matching.Domain, error) {
	parts := strings.Split(raw, ",")
	out := make([]matching.Domain, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		d := matching.Domain(p)
		switch d {
		case matching.DomainGeneral, matching.DomainBusiness, matching.DomainDating, matching.DomainFriendship:
			out = append(out, d)
		default:
			return nil, NewValidationError("MATCH_DOMAINS", fmt.Errorf("unrecognized domain %q", p))
		}
	}
	if len(out) == 0 {
		return nil, NewValidationError("MATCH_DOMAINS", errors.New("must name at least one domain"))
	}
	return out, nil
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultVal, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, NewValidationError(key, err)
	}
	return v, nil
}

func getEnvInt64(key string, defaultVal int64) (int64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultVal, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, NewValidationError(key, err)
	}
	return v, nil
}

func getEnvFloat(key string, defaultVal float64) (float64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultVal, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, NewValidationError(key, err)
	}
	return v, nil
}

func getEnvBool(key string, defaultVal bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultVal, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, NewValidationError(key, err)
	}
	return v, nil
}
