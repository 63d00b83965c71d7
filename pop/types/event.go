package types

// EventKind distinguishes membership transitions.
type EventKind uint8

const (
	EventAddition EventKind = iota + 1
	EventRemoval
)

func (k EventKind) String() string {
	switch k {
	case EventAddition:
		return "ADD"
	case EventRemoval:
		return "REMOVE"
	default:
		return "UNKNOWN"
	}
}

// Event reports one membership transition of one entity in one index to one
// subscriber. Time is the simulation time of the triggering mutation.
type Event struct {
	Time       float64
	Subscriber SubscriberID
	Kind       EventKind
	Key        Key
	Entity     EntityID
}
