package sched

// Compiled-in scheduling defaults; RuntimeConfig (internal/config)
// may override the ones the host is allowed to tune at init.
const (
	// MaxCores bounds the core ids this package will address directly
	// (classification, sched_init-style validation).
	MaxCores = 128

	// MaxOnlineCores bounds how many cores a single Runtime may
	// actually dispatch on. Affinity masks are a uint64 bitset, so
	// cores at index 64 and above could never be named by any mask;
	// rather than silently leaving such Dispatchers idle forever, New
	// rejects configurations that exceed this.
	MaxOnlineCores = 64

	// DefaultReductions is granted to every process on selection.
	DefaultReductions = 2000

	// MinReductions and MaxReductions bound SetReductions.
	MinReductions = 100
	MaxReductions = 10000

	// BIFSpawnCost and BIFExitCost are charged against the caller's
	// reduction budget.
	BIFSpawnCost = 10
	BIFExitCost  = 1

	// DefaultMaxStealAttempts bounds victim probes per steal round.
	DefaultMaxStealAttempts = 4

	// DefaultMaxMigrationsPerPCB is the migration cap applied when the
	// host does not configure max_migrations_per_pcb. It is chosen
	// generously: migration is throttled, never forbidden, unless the
	// host asks for a stricter ceiling.
	DefaultMaxMigrationsPerPCB = 1 << 20

	// NumPriorityLevels is fixed: MAX, HIGH, NORMAL, LOW.
	NumPriorityLevels = numPriorities
)
