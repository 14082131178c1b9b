package workflow

type edges struct {
	next     map[Status]Status
	previous map[Status]Status
}

var standard = edges{
	next: map[Status]Status{
		StatusNotStarted:      StatusASAP,
		StatusASAP:            StatusInProgress,
		StatusInProgress:      StatusRequiresChanges,
		StatusRequiresChanges: StatusReady,
	},
	previous: map[Status]Status{
		StatusASAP:            StatusNotStarted,
		StatusInProgress:      StatusASAP,
		StatusRequiresChanges: StatusInProgress,
		StatusReady:           StatusRequiresChanges,
	},
}

// restricted collapses ASAP and REQUIRES_CHANGES into pass-through states.
var restricted = edges{
	next: map[Status]Status{
		StatusNotStarted:      StatusInProgress,
		StatusASAP:            StatusInProgress,
		StatusInProgress:      StatusReady,
		StatusRequiresChanges: StatusReady,
	},
	previous: map[Status]Status{
		StatusASAP:            StatusNotStarted,
		StatusInProgress:      StatusNotStarted,
		StatusRequiresChanges: StatusInProgress,
		StatusReady:           StatusInProgress,
	},
}

func edgesFor(tier Tier) edges {
	if tier == TierPaid {
		return standard
	}
	return restricted
}

// Next returns the status after s, or StatusNone at the end of the workflow.
func Next(s Status, tier Tier) Status {
	return edgesFor(tier).next[s]
}

// Previous returns the status before s, or StatusNone at the start of the workflow.
func Previous(s Status, tier Tier) Status {
	return edgesFor(tier).previous[s]
}

// Blocked reports whether s is unreachable under tier.
func Blocked(s Status, tier Tier) bool {
	return tier != TierPaid && (s == StatusASAP || s == StatusRequiresChanges)
}

// RemapForTier demotes a status that tier cannot reach, walking back along the
// standard workflow until a reachable status is found.
func RemapForTier(s Status, tier Tier) Status {
	for Blocked(s, tier) {
		prev := standard.previous[s]
		if prev == StatusNone {
			return s
		}
		s = prev
	}
	return s
}

// Reachable lists the statuses of the active workflow for tier, in order.
func Reachable(tier Tier) []Status {
	out := make([]Status, 0, len(All))
	for _, s := range All {
		if !Blocked(s, tier) {
			out = append(out, s)
		}
	}
	return out
}

// Move resolves a direction from s. ok is false at a workflow boundary.
func Move(s Status, d Direction, tier Tier) (Status, bool) {
	var target Status
	switch d {
	case DirectionNext:
		target = Next(s, tier)
	case DirectionPrevious:
		target = Previous(s, tier)
	case DirectionReady:
		if s != StatusReady {
			target = StatusReady
		}
	}
	return target, target != StatusNone
}
