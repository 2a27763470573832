package supervisor

import (
	"time"

	"autocraft/internal/config"
)

// Settings tunes every persistent task.
type Settings struct {
	FollowInterval time.Duration
	FollowRange    float64

	AttackInterval   time.Duration
	EngagementRadius float64
	StrikeRange      float64
	ChaseRange       float64

	GatherSearchRadius float64
	GatherStepDelay    time.Duration
	GatherRetryDelay   time.Duration
	GatherMaxFailures  int
	RelocateDistance   float64
}

// DefaultSettings returns the tuning the agent ships with.
func DefaultSettings() Settings {
	return Settings{
		FollowInterval:     time.Second,
		FollowRange:        2,
		AttackInterval:     500 * time.Millisecond,
		EngagementRadius:   16,
		StrikeRange:        3.5,
		ChaseRange:         2,
		GatherSearchRadius: 48,
		GatherStepDelay:    250 * time.Millisecond,
		GatherRetryDelay:   time.Second,
		GatherMaxFailures:  3,
		RelocateDistance:   32,
	}
}

// SettingsFromConfig maps the supervisor section of cfg onto Settings,
// keeping defaults for anything unset.
func SettingsFromConfig(cfg *config.Config) Settings {
	s := DefaultSettings()
	if cfg == nil {
		return s
	}
	sc := cfg.Supervisor
	s.FollowInterval = cfg.GetFollowInterval()
	s.AttackInterval = cfg.GetAttackInterval()
	s.GatherStepDelay = cfg.GetGatherStepDelay()
	s.GatherRetryDelay = cfg.GetGatherRetryDelay()
	if sc.FollowRange > 0 {
		s.FollowRange = sc.FollowRange
	}
	if sc.EngagementRadius > 0 {
		s.EngagementRadius = sc.EngagementRadius
	}
	if sc.StrikeRange > 0 {
		s.StrikeRange = sc.StrikeRange
	}
	if sc.GatherSearchRadius > 0 {
		s.GatherSearchRadius = sc.GatherSearchRadius
	}
	if sc.GatherMaxFailures > 0 {
		s.GatherMaxFailures = sc.GatherMaxFailures
	}
	if sc.RelocateDistance > 0 {
		s.RelocateDistance = sc.RelocateDistance
	}
	return s
}
