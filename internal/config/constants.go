package config

const (
	// DefaultExportDir is where Markdown files are written when no directory is configured
	DefaultExportDir = "./highlights"

	// DefaultSyncSchedule runs an export hourly at :00
	DefaultSyncSchedule = "0 * * * *"

	// DefaultSyncDebounce is how long the watcher waits for database writes to settle
	DefaultSyncDebounce = "2s"

	DefaultLogLevel = "info"
)
