package aggregates

// WriteOwnership defines how an aggregate makes its writes safe.
type WriteOwnership string

const (
	// WriteCASPerRecord means each record is written with a version check and
	// retried on conflict; there is no atomicity across records.
	WriteCASPerRecord WriteOwnership = "cas_per_record"
)

// Contract describes aggregate-level policy expectations.
type Contract struct {
	Name           string
	WriteOwnership WriteOwnership
	Notes          string
}

// Aggregate is the common marker for all aggregate contracts.
type Aggregate interface {
	Contract() Contract
}
