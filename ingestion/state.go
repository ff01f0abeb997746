package ingestion

// State is the position of one file in the pipeline.
type State int

const (
	StateReceived State = iota
	StateNormalized
	StateExtracted
	StateChunked
	StatePersisted
	StateIndexed
	StateFailed
	StateSkipped
)

var stateNames = [...]string{
	StateReceived:   "received",
	StateNormalized: "normalized",
	StateExtracted:  "extracted",
	StateChunked:    "chunked",
	StatePersisted:  "persisted",
	StateIndexed:    "indexed",
	StateFailed:     "failed",
	StateSkipped:    "skipped",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Terminal reports whether no further stage runs after s.
func (s State) Terminal() bool {
	return s == StateIndexed || s == StateFailed || s == StateSkipped
}
