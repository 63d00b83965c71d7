// Package types holds the value model and identifiers shared by the
// population indexing engine.
package types

// EntityID is an opaque, totally ordered handle into the population.
// Indexes store identity only, never entity data.
type EntityID int64

// Identifier types. The empty string is the null identifier for each.
type (
	PropertyID    string
	CompartmentID string
	RegionID      string
	ResourceID    string
	GroupID       string
	GroupTypeID   string
)

// Key names a population index. Keys are unique among active indexes.
type Key string

// IsNull reports whether k is the null key.
func (k Key) IsNull() bool { return k == "" }

// SubscriberID is an opaque handle issued by the observation router.
type SubscriberID string

// Category identifies an exact-membership dimension such as the
// compartment or region an entity currently occupies.
type Category uint8

const (
	CategoryCompartment Category = iota + 1
	CategoryRegion
)

func (c Category) String() string {
	switch c {
	case CategoryCompartment:
		return "compartment"
	case CategoryRegion:
		return "region"
	default:
		return "unknown"
	}
}
