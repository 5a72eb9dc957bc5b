package dispatch

// State is the lifecycle stage of a dispatched transaction.
type State int

const (
	// Building means the transaction is being created and signed.
	Building State = iota
	// Submitted means the transaction was handed to the channel.
	Submitted
	// Accepted means the transaction id is known and the transaction is
	// in the pending set.
	Accepted
	// Settled means the transaction completed successfully.
	Settled
	// Failed means the transaction was refused or did not complete.
	Failed
)

var stateNames = map[State]string{
	Building:  "building",
	Submitted: "submitted",
	Accepted:  "accepted",
	Settled:   "settled",
	Failed:    "failed",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return "unknown"
}
