// Package errors provides error handling for popidx.
//
// This package re-exports github.com/cockroachdb/errors, providing:
//   - Stack traces for debugging
//   - Error wrapping and context
//   - Details and hints attached to classified errors
//
// It also defines the classified error taxonomy raised by the indexing engine.
// Every precondition violation is one of the sentinels below, wrapped with
// detail about the offending identifier:
//
//	if err := mgr.AddIndex(f, "adults"); errors.Is(err, errors.ErrUnknownPropertyID) {
//	    // the filter references a property the schema does not define
//	}
//
// For full documentation see: https://pkg.go.dev/github.com/cockroachdb/errors
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
)

// User-facing messages and details
var (
	WithHint    = crdb.WithHint
	WithHintf   = crdb.WithHintf
	WithDetail  = crdb.WithDetail
	WithDetailf = crdb.WithDetailf
)

// Error inspection
var (
	Is             = crdb.Is
	IsAny          = crdb.IsAny
	As             = crdb.As
	Unwrap         = crdb.Unwrap
	UnwrapAll      = crdb.UnwrapAll
	GetAllHints    = crdb.GetAllHints
	GetAllDetails  = crdb.GetAllDetails
	FlattenHints   = crdb.FlattenHints
	FlattenDetails = crdb.FlattenDetails
)

// Assertions
var (
	AssertionFailedf = crdb.AssertionFailedf
)

// Common sentinel errors for the attribute store and CLI.
var (
	// ErrNotFound indicates the requested resource does not exist
	ErrNotFound = New("not found")

	// ErrInvalidRequest indicates the request was malformed or invalid
	ErrInvalidRequest = New("invalid request")

	// ErrConflict indicates a resource conflict (e.g., duplicate entity)
	ErrConflict = New("resource conflict")
)

// Filter construction and binding errors.
var (
	// ErrNullFilter indicates a nil filter operand
	ErrNullFilter = New("null filter")

	ErrNullPropertyID            = New("null property id")
	ErrUnknownPropertyID         = New("unknown property id")
	ErrNullEquality              = New("null equality")
	ErrNullPropertyValue         = New("null property value")
	ErrIncompatiblePropertyValue = New("incompatible property value")

	// ErrNonComparableProperty indicates an ordering comparator on an
	// equality-only value kind
	ErrNonComparableProperty = New("non-comparable property")

	ErrNullCompartmentID    = New("null compartment id")
	ErrUnknownCompartmentID = New("unknown compartment id")
	ErrNullRegionID         = New("null region id")
	ErrUnknownRegionID      = New("unknown region id")
	ErrNullResourceID       = New("null resource id")
	ErrUnknownResourceID    = New("unknown resource id")
	ErrNullGroupID          = New("null group id")
	ErrUnknownGroupID       = New("unknown group id")
	ErrNullGroupTypeID      = New("null group type id")
	ErrUnknownGroupTypeID   = New("unknown group type id")
	ErrNegativeGroupCount   = New("negative group count")
)

// Index registry and subscription errors.
var (
	ErrNullPopulationIndexKey    = New("null population index key")
	ErrUnknownPopulationIndexKey = New("unknown population index key")
	ErrDuplicateIndexKey         = New("duplicate population index key")
	ErrUnknownSubscriber         = New("unknown subscriber")

	// ErrReentrantMutation is returned when a mutation arrives during event
	// dispatch and the manager is configured to reject re-entrant mutation
	ErrReentrantMutation = New("re-entrant mutation during dispatch")
)

// taxonomy lists every classified sentinel in a stable order.
var taxonomy = []error{
	ErrNullFilter,
	ErrNullPropertyID,
	ErrUnknownPropertyID,
	ErrNullEquality,
	ErrNullPropertyValue,
	ErrIncompatiblePropertyValue,
	ErrNonComparableProperty,
	ErrNullCompartmentID,
	ErrUnknownCompartmentID,
	ErrNullRegionID,
	ErrUnknownRegionID,
	ErrNullResourceID,
	ErrUnknownResourceID,
	ErrNullGroupID,
	ErrUnknownGroupID,
	ErrNullGroupTypeID,
	ErrUnknownGroupTypeID,
	ErrNegativeGroupCount,
	ErrNullPopulationIndexKey,
	ErrUnknownPopulationIndexKey,
	ErrDuplicateIndexKey,
	ErrUnknownSubscriber,
	ErrReentrantMutation,
}

// Classify returns the taxonomy sentinel err wraps, or nil if err is not a
// classified engine error.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	for _, sentinel := range taxonomy {
		if Is(err, sentinel) {
			return sentinel
		}
	}
	return nil
}

// IsClassified reports whether err wraps one of the engine's sentinels.
func IsClassified(err error) bool {
	return Classify(err) != nil
}
