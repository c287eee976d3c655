package booking

// KindPolicy captures everything that differs between desks, rooms, and
// tables. The lifecycle and overlap code is written once against this
// table; adding a resource kind means adding a row, not code.
type KindPolicy struct {
	Kind ResourceKind

	// BlockingStatuses are the reservation statuses that occupy a slot for
	// overlap purposes, regardless of requester.
	BlockingStatuses []Status

	// RequiresApproval makes new reservations start Pending and wait for a
	// manager decision instead of auto-confirming.
	RequiresApproval bool

	// RejectDuplicatePending rejects a new request when the same requester
	// already holds an overlapping Pending on the same resource. Competing
	// Pendings from other requesters stay allowed: approval arbitrates.
	RejectDuplicatePending bool

	// MaxPerDayPerRequester caps how many of the requester's own
	// pending/confirmed reservations of this kind may cover the same
	// calendar day, across all resources. Zero means no cap.
	MaxPerDayPerRequester int

	// ExclusiveAcrossResources forbids the requester from holding
	// time-overlapping reservations of this kind on different resources.
	ExclusiveAcrossResources bool
}

// Blocks reports whether a reservation in status s occupies a slot.
func (p KindPolicy) Blocks(s Status) bool {
	for _, b := range p.BlockingStatuses {
		if b == s {
			return true
		}
	}
	return false
}

var policies = map[ResourceKind]KindPolicy{
	KindDesk: {
		Kind:                     KindDesk,
		BlockingStatuses:         []Status{StatusPending, StatusConfirmed},
		RequiresApproval:         false,
		MaxPerDayPerRequester:    2,
		ExclusiveAcrossResources: true,
	},
	KindRoom: {
		Kind: KindRoom,
		// Only Confirmed blocks: multiple users may compete with Pending
		// requests for the same slot and the manager picks one.
		BlockingStatuses:       []Status{StatusConfirmed},
		RequiresApproval:       true,
		RejectDuplicatePending: true,
	},
	KindTable: {
		Kind:             KindTable,
		BlockingStatuses: []Status{StatusPending, StatusConfirmed},
		RequiresApproval: false,
	},
}

// PolicyFor returns the policy row for a resource kind. Unknown kinds get
// the most conservative treatment: everything blocks, approval required.
func PolicyFor(kind ResourceKind) KindPolicy {
	if p, ok := policies[kind]; ok {
		return p
	}
	return KindPolicy{
		Kind:             kind,
		BlockingStatuses: []Status{StatusPending, StatusConfirmed},
		RequiresApproval: true,
	}
}
