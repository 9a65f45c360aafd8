package config

import (
	"hash/fnv"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// FeatureFlags manages feature toggles and gradual rollouts.
// Supports per-participant rollout percentages, time-based activation,
// and consistent-hash bucketing so a participant stays in the same
// bucket across requests.
type FeatureFlags struct {
	mu sync.RWMutex

	features map[string]*Feature

	// Override rules (for testing/debugging)
	overrides map[string]map[string]bool // participantID -> feature -> enabled
}

// Feature represents a single feature flag.
type Feature struct {
	Name        string
	Description string
	Enabled     bool

	// Rollout percentage (0-100)
	// Participants are assigned based on a hash of their ID
	RolloutPercent int

	// Time-based activation
	EnabledFrom  *time.Time
	EnabledUntil *time.Time

	// A/B test variant (for experiments)
	Variants []string
}

// FeatureContext provides context for feature flag evaluation.
type FeatureContext struct {
	ParticipantID string
	IsAdmin       bool
}

// Predefined feature flag names.
const (
	// === Matching features ===
	FeatureMatchingRecommendationCache = "matching.recommendation_cache" // Cache ranked recommendations in Redis
	FeatureMatchingMutualConnections   = "matching.mutual_connections"   // Collaboration factor from the relationship graph
	FeatureMatchingReasonPhrases       = "matching.reason_phrases"       // Human-readable match reasons

	// === Search features ===
	FeatureSearchKeyword = "search.keyword" // Free-text keyword filtering

	// === Connection features ===
	FeatureConnectionsFavorites = "connections.favorites" // Favorite/bookmark participants

	// === Experimental features ===
	FeatureExperimentalWeightTuning = "experimental.weight_tuning" // A/B test alternative factor weights
)

// LoadFeatureFlags loads feature flags from environment variables.
func LoadFeatureFlags() *FeatureFlags {
	ff := &FeatureFlags{
		features:  make(map[string]*Feature),
		overrides: make(map[string]map[string]bool),
	}

	ff.initializeDefaults()
	ff.loadFromEnvironment()

	return ff
}

// initializeDefaults sets up all features with default values.
func (ff *FeatureFlags) initializeDefaults() {
	ff.features[FeatureMatchingRecommendationCache] = &Feature{
		Name:           FeatureMatchingRecommendationCache,
		Description:    "Cache ranked recommendations in Redis",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureMatchingMutualConnections] = &Feature{
		Name:           FeatureMatchingMutualConnections,
		Description:    "Score collaboration potential from mutual connections",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureMatchingReasonPhrases] = &Feature{
		Name:           FeatureMatchingReasonPhrases,
		Description:    "Attach human-readable reasons to match scores",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureSearchKeyword] = &Feature{
		Name:           FeatureSearchKeyword,
		Description:    "Free-text keyword filtering in participant search",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureConnectionsFavorites] = &Feature{
		Name:           FeatureConnectionsFavorites,
		Description:    "Favorite/bookmark participants",
		Enabled:        true,
		RolloutPercent: 100,
	}

	// Experimental features - disabled by default
	ff.features[FeatureExperimentalWeightTuning] = &Feature{
		Name:           FeatureExperimentalWeightTuning,
		Description:    "Alternative factor weight experiments",
		Enabled:        false,
		RolloutPercent: 0,
	}
}

// loadFromEnvironment loads feature flag overrides from env vars.
// Format: FEATURE_<NAME>=true|false|<percent>
// Example: FEATURE_SEARCH_KEYWORD=true
// Example: FEATURE_EXPERIMENTAL_WEIGHT_TUNING=10 (10% rollout)
func (ff *FeatureFlags) loadFromEnvironment() {
	for name, feature := range ff.features {
		envKey := featureNameToEnvKey(name)
		if val := os.Getenv(envKey); val != "" {
			// Try parsing as boolean
			if b, err := strconv.ParseBool(val); err == nil {
				feature.Enabled = b
				if b {
					feature.RolloutPercent = 100
				} else {
					feature.RolloutPercent = 0
				}
				continue
			}

			// Try parsing as percentage
			if p, err := strconv.Atoi(val); err == nil && p >= 0 && p <= 100 {
				feature.Enabled = p > 0
				feature.RolloutPercent = p
			}
		}
	}
}

// featureNameToEnvKey converts feature name to environment variable key.
// "search.keyword" -> "FEATURE_SEARCH_KEYWORD"
func featureNameToEnvKey(name string) string {
	key := strings.ToUpper(name)
	key = strings.ReplaceAll(key, ".", "_")
	return "FEATURE_" + key
}

// IsEnabled checks if a feature is enabled for the given context.
func (ff *FeatureFlags) IsEnabled(featureName string, ctx *FeatureContext) bool {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	// Check participant overrides first
	if ctx != nil && ctx.ParticipantID != "" {
		if overrides, ok := ff.overrides[ctx.ParticipantID]; ok {
			if enabled, ok := overrides[featureName]; ok {
				return enabled
			}
		}
	}

	feature, ok := ff.features[featureName]
	if !ok {
		return false
	}

	// Admin users get all features
	if ctx != nil && ctx.IsAdmin {
		return true
	}

	if !feature.Enabled {
		return false
	}

	// Check time-based activation
	now := time.Now()
	if feature.EnabledFrom != nil && now.Before(*feature.EnabledFrom) {
		return false
	}
	if feature.EnabledUntil != nil && now.After(*feature.EnabledUntil) {
		return false
	}

	// Check rollout percentage
	if feature.RolloutPercent < 100 && ctx != nil && ctx.ParticipantID != "" {
		return isInRollout(ctx.ParticipantID, featureName, feature.RolloutPercent)
	}

	return feature.RolloutPercent > 0
}

// isInRollout determines if a participant is in the rollout percentage.
// Uses consistent hashing so participants stay in their bucket.
func isInRollout(participantID, featureName string, percent int) bool {
	h := fnv.New32a()
	h.Write([]byte(featureName))
	h.Write([]byte(participantID))
	hash := h.Sum32()

	// Map to 0-99 range
	bucket := int(hash % 100)

	return bucket < percent
}

// GetVariant returns the A/B test variant for a participant.
// Returns empty string if no variants defined or feature disabled.
func (ff *FeatureFlags) GetVariant(featureName string, ctx *FeatureContext) string {
	ff.mu.RLock()
	feature, ok := ff.features[featureName]
	hasVariants := ok && len(feature.Variants) > 0
	ff.mu.RUnlock()

	if !hasVariants || !ff.IsEnabled(featureName, ctx) {
		return ""
	}
	if ctx == nil || ctx.ParticipantID == "" {
		return feature.Variants[0]
	}

	// Use consistent hashing to assign variant
	h := fnv.New32a()
	h.Write([]byte(featureName + "_variant"))
	h.Write([]byte(ctx.ParticipantID))
	hash := h.Sum32()

	variantIndex := int(hash % uint32(len(feature.Variants)))
	return feature.Variants[variantIndex]
}

// SetOverride sets a feature override for a specific participant.
// Useful for testing and debugging.
func (ff *FeatureFlags) SetOverride(participantID, featureName string, enabled bool) {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	if _, ok := ff.overrides[participantID]; !ok {
		ff.overrides[participantID] = make(map[string]bool)
	}
	ff.overrides[participantID][featureName] = enabled
}

// ClearOverrides removes all overrides for a participant.
func (ff *FeatureFlags) ClearOverrides(participantID string) {
	ff.mu.Lock()
	defer ff.mu.Unlock()
	delete(ff.overrides, participantID)
}

// SetRolloutPercent updates the rollout percentage for a feature.
// Thread-safe for live updates.
func (ff *FeatureFlags) SetRolloutPercent(featureName string, percent int) error {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	feature, ok := ff.features[featureName]
	if !ok {
		return ErrFeatureNotFound
	}

	if percent < 0 || percent > 100 {
		return ErrInvalidRolloutPercent
	}

	feature.RolloutPercent = percent
	feature.Enabled = percent > 0

	return nil
}

// EnableFeature enables a feature at 100% rollout.
func (ff *FeatureFlags) EnableFeature(featureName string) error {
	return ff.SetRolloutPercent(featureName, 100)
}

// DisableFeature disables a feature completely.
func (ff *FeatureFlags) DisableFeature(featureName string) error {
	return ff.SetRolloutPercent(featureName, 0)
}

// GetAllFeatures returns a copy of all feature configurations.
func (ff *FeatureFlags) GetAllFeatures() map[string]*Feature {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	result := make(map[string]*Feature, len(ff.features))
	for k, v := range ff.features {
		featureCopy := *v
		result[k] = &featureCopy
	}
	return result
}

// --- Errors ---

var (
	ErrFeatureNotFound       = &FeatureFlagError{Message: "feature not found"}
	ErrInvalidRolloutPercent = &FeatureFlagError{Message: "rollout percent must be 0-100"}
)

// FeatureFlagError represents a feature flag error.
type FeatureFlagError struct {
	Message string
}

func (e *FeatureFlagError) Error() string {
	return e.Message
}
