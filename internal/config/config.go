// Package config holds the table client's nested configuration struct,
// in a "one struct of sub-structs, one DefaultConfig()" shape.
package config

type Config struct {
	Commit     CommitConfig
	Checkpoint CheckpointConfig
	Vacuum     VacuumConfig
	Log        LogConfig
}

// CommitConfig governs the optimistic-concurrency commit loop.
type CommitConfig struct {
	// MaxRetryCommitAttempts bounds how many times commit_with retries
	// after an AlreadyExists conflict before failing with
	// TransactionCommitAttempt. Default 10,000,000 is effectively
	// unbounded.
	MaxRetryCommitAttempts int
}

// CheckpointConfig governs checkpoint part reading.
type CheckpointConfig struct {
	// ReadConcurrency bounds how many checkpoint part files are read in
	// parallel when a checkpoint has multiple parts.
	ReadConcurrency int
}

// VacuumConfig governs the vacuum planner's defaults.
type VacuumConfig struct {
	// DefaultRetentionHours is used by callers that don't pass an
	// explicit retention; it must still satisfy the >=168 hour floor.
	DefaultRetentionHours uint64
}

// LogConfig governs logging verbosity for table operations.
type LogConfig struct {
	Verbose bool
}

func DefaultConfig() *Config {
	return &Config{
		Commit: CommitConfig{
			MaxRetryCommitAttempts: 10_000_000,
		},
		Checkpoint: CheckpointConfig{
			ReadConcurrency: 4,
		},
		Vacuum: VacuumConfig{
			DefaultRetentionHours: 168,
		},
		Log: LogConfig{
			Verbose: false,
		},
	}
}

// CommitAttemptBudget is a tiny helper kept here (rather than in the
// commit package) so the budget math only exists in one place.
func (c *Config) CommitAttemptBudget() int {
	if c.Commit.MaxRetryCommitAttempts <= 0 {
		return 10_000_000
	}
	return c.Commit.MaxRetryCommitAttempts
}
