package pipeline

import "fabriq-content/internal/report"

// State is where a source's processing ended up.
//
//	Pending -> Fetching -> FetchFailed
//	                    -> Fetched -> Extracting -> Empty
//	                                             -> Extracted -> Merging -> Done
type State int

const (
	StatePending State = iota
	StateFetching
	StateFetchFailed
	StateFetched
	StateExtracting
	StateEmpty
	StateExtracted
	StateMerging
	StateDone
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateFetching:
		return "fetching"
	case StateFetchFailed:
		return "fetch_failed"
	case StateFetched:
		return "fetched"
	case StateExtracting:
		return "extracting"
	case StateEmpty:
		return "empty"
	case StateExtracted:
		return "extracted"
	case StateMerging:
		return "merging"
	case StateDone:
		return "done"
	}
	return "unknown"
}

// Terminal reports whether processing stops in this state.
func (s State) Terminal() bool {
	return s == StateFetchFailed || s == StateEmpty || s == StateDone
}

// SourceResult is what processing one source produced, failures included.
// Warning is empty unless the source needs attention.
type SourceResult struct {
	State State
	// Path holds every state entered, in order, ending with State.
	Path    []State
	Outcome report.Outcome
	Warning string
}

func (r *SourceResult) enter(s State) {
	r.State = s
	r.Path = append(r.Path, s)
}
