package logger

// Output controls what categories of information are shown at each verbosity level.
//
// Unlike log levels (which filter by severity), output categories control
// WHAT types of information are displayed regardless of severity.
//
// Verbosity Levels:
//
//	0 (default) - Result tables, divergence errors, final status
//	1 (-v)      - + Checkpoint progress, index lifecycle
//	2 (-vv)     - + Loaded config, metric families
//	3 (-vvv)    - + Every ADD/REMOVE event

// OutputCategory defines a category of output that can be enabled/disabled
type OutputCategory int

const (
	// Level 0 (default) - Always shown
	OutputResults    OutputCategory = iota // Index tables, command output
	OutputErrors                           // Errors with hints
	OutputUserStatus                       // Final pass/fail status

	// Level 1 (-v) - Informational
	OutputProgress // Checkpoint progress during simulation
	OutputIndexes  // Index registration and removal

	// Level 2 (-vv) - Detailed
	OutputConfig  // Config values loaded
	OutputMetrics // Prometheus metric families

	// Level 3 (-vvv) - Trace
	OutputEvents // Individual membership events
)

// categoryLevels maps each output category to its minimum verbosity level
var categoryLevels = map[OutputCategory]int{
	OutputResults:    VerbosityUser,
	OutputErrors:     VerbosityUser,
	OutputUserStatus: VerbosityUser,

	OutputProgress: VerbosityInfo,
	OutputIndexes:  VerbosityInfo,

	OutputConfig:  VerbosityDebug,
	OutputMetrics: VerbosityDebug,

	OutputEvents: VerbosityTrace,
}

// ShouldOutput returns true if the given category should be shown at the given verbosity
func ShouldOutput(verbosity int, category OutputCategory) bool {
	minLevel, ok := categoryLevels[category]
	if !ok {
		return verbosity >= VerbosityTrace
	}
	return verbosity >= minLevel
}

var categoryNames = map[OutputCategory]string{
	OutputResults:    "results",
	OutputErrors:     "errors",
	OutputUserStatus: "status",
	OutputProgress:   "progress",
	OutputIndexes:    "indexes",
	OutputConfig:     "config",
	OutputMetrics:    "metrics",
	OutputEvents:     "events",
}

// CategoryName returns the human-readable name for an output category
func CategoryName(category OutputCategory) string {
	if name, ok := categoryNames[category]; ok {
		return name
	}
	return "unknown"
}

// EnabledCategories lists the names of the categories shown at verbosity,
// in category order.
func EnabledCategories(verbosity int) []string {
	var names []string
	for c := OutputResults; c <= OutputEvents; c++ {
		if ShouldOutput(verbosity, c) {
			names = append(names, CategoryName(c))
		}
	}
	return names
}
