package logger

import (
	"go.uber.org/zap"
)

// Standard field names for structured logging across popidx.
// Use these constants instead of raw strings.
const (
	// Components
	FieldComponent = "component"
	FieldOperation = "operation"

	// Indexing
	FieldIndexKey   = "index_key"
	FieldFilter     = "filter"
	FieldEntity     = "entity"
	FieldTrigger    = "trigger"
	FieldEventKind  = "event_kind"
	FieldSubscriber = "subscriber"
	FieldMembers    = "members"
	FieldDeps       = "deps"

	// Counts and sizes
	FieldCount     = "count"
	FieldPending   = "pending"
	FieldRemaining = "remaining"

	// Simulation
	FieldSeed       = "seed"
	FieldStep       = "step"
	FieldPopulation = "population"
	FieldTime       = "time"

	// Errors
	FieldError = "error"

	// Files and paths
	FieldFile = "file"
)

// ComponentLogger returns a named logger for a specific component.
// This is the preferred way to get a logger for dependency injection.
//
// Example:
//
//	mgr := manager.New(store, store, manager.WithLogger(logger.ComponentLogger("pop.manager")))
func ComponentLogger(name string) *zap.SugaredLogger {
	return Logger.Named(name)
}

// ChildLogger creates a child logger with additional context.
func ChildLogger(parent *zap.SugaredLogger, keysAndValues ...interface{}) *zap.SugaredLogger {
	return parent.With(keysAndValues...)
}
