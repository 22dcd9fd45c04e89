package shared

// Side represents the direction of a rise/fall contract.
type Side int

const (
	None Side = iota
	Rise
	Fall
)

// String stringifies the provided side.
func (s Side) String() string {
	switch s {
	case None:
		return "none"
	case Rise:
		return "rise"
	case Fall:
		return "fall"
	default:
		return "unknown"
	}
}

// Opposite returns the opposing side. None has no opposite.
func (s Side) Opposite() Side {
	switch s {
	case Rise:
		return Fall
	case Fall:
		return Rise
	default:
		return None
	}
}

// Result represents the settled outcome of a contract.
type Result int

const (
	Win Result = iota
	Loss
	Tie
)

// String stringifies the provided result.
func (r Result) String() string {
	switch r {
	case Win:
		return "win"
	case Loss:
		return "loss"
	case Tie:
		return "tie"
	default:
		return "unknown"
	}
}
