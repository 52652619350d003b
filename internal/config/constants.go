package config

const (
	// DefaultDatabasePath is the default path for the main application database
	DefaultDatabasePath = "./library.db"

	// DefaultOverdueThresholdDays is how far past its due date a lending must be
	// before a reminder goes out.
	DefaultOverdueThresholdDays = 15
)
