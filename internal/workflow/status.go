package workflow

import "fmt"

// Status is the workflow position of a task.
type Status string

const (
	StatusNone            Status = ""
	StatusNotStarted      Status = "NOT_STARTED"
	StatusASAP            Status = "ASAP"
	StatusInProgress      Status = "IN_PROGRESS"
	StatusRequiresChanges Status = "REQUIRES_CHANGES"
	StatusReady           Status = "READY"
)

// All lists every status in standard workflow order.
var All = []Status{
	StatusNotStarted,
	StatusASAP,
	StatusInProgress,
	StatusRequiresChanges,
	StatusReady,
}

func (s Status) Valid() bool {
	for _, st := range All {
		if s == st {
			return true
		}
	}
	return false
}

func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.Valid() {
		return StatusNone, fmt.Errorf("unknown status %q", s)
	}
	return st, nil
}

// Tier is the subscription level of the board owner.
type Tier string

const (
	TierFree Tier = "free"
	TierPaid Tier = "paid"
)

func ParseTier(s string) Tier {
	if Tier(s) == TierPaid {
		return TierPaid
	}
	return TierFree
}

// Direction is a requested move along the workflow.
type Direction string

const (
	DirectionNext     Direction = "next"
	DirectionPrevious Direction = "previous"
	DirectionReady    Direction = "ready"
)

func ParseDirection(s string) (Direction, error) {
	switch d := Direction(s); d {
	case DirectionNext, DirectionPrevious, DirectionReady:
		return d, nil
	case "prev":
		return DirectionPrevious, nil
	}
	return "", fmt.Errorf("unknown direction %q", s)
}
