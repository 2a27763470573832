package config

import "time"

// AgentConfig configures the interrupt arbiter.
type AgentConfig struct {
	IdleDelay       string  `yaml:"idle_delay"`       // self-prompt after this much quiet
	DetectionRadius float64 `yaml:"detection_radius"` // attacker search radius on damage
}

// SupervisorConfig tunes the persistent tasks.
type SupervisorConfig struct {
	FollowInterval     string  `yaml:"follow_interval"`
	FollowRange        float64 `yaml:"follow_range"`
	AttackInterval     string  `yaml:"attack_interval"`
	EngagementRadius   float64 `yaml:"engagement_radius"`
	StrikeRange        float64 `yaml:"strike_range"`
	GatherSearchRadius float64 `yaml:"gather_search_radius"`
	GatherStepDelay    string  `yaml:"gather_step_delay"`
	GatherRetryDelay   string  `yaml:"gather_retry_delay"`
	GatherMaxFailures  int     `yaml:"gather_max_failures"`
	RelocateDistance   float64 `yaml:"relocate_distance"`
}

// GetIdleDelay returns the idle self-prompt delay.
func (c *Config) GetIdleDelay() time.Duration {
	return parseDuration(c.Agent.IdleDelay, 30*time.Second)
}

// GetFollowInterval returns the follow step interval.
func (c *Config) GetFollowInterval() time.Duration {
	return parseDuration(c.Supervisor.FollowInterval, time.Second)
}

// GetAttackInterval returns the attack step interval.
func (c *Config) GetAttackInterval() time.Duration {
	return parseDuration(c.Supervisor.AttackInterval, 500*time.Millisecond)
}

// GetGatherStepDelay returns the pause between successful gather steps.
func (c *Config) GetGatherStepDelay() time.Duration {
	return parseDuration(c.Supervisor.GatherStepDelay, 250*time.Millisecond)
}

// GetGatherRetryDelay returns the pause after a failed navigation.
func (c *Config) GetGatherRetryDelay() time.Duration {
	return parseDuration(c.Supervisor.GatherRetryDelay, time.Second)
}
