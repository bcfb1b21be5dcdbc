package pipeline

import "context"

// Outcome is a step's control-flow result. A typed variant instead of a
// magic sentinel: Continue proceeds, Halt ends the run intentionally.
// Failure travels on the error return.
type Outcome int

const (
	// Continue runs the next step.
	Continue Outcome = iota
	// Halt ends the run without error, keeping the state built so far.
	Halt
)

// Phase is a human-facing progress label. Steps without a phase run silently.
type Phase string

const (
	PhaseCollect   Phase = "collect"
	PhaseHistory   Phase = "history"
	PhaseQualify   Phase = "qualify"
	PhaseSecondary Phase = "secondary"
	PhaseEnrich    Phase = "enrich"
	PhaseSummarize Phase = "summarize"
	PhaseFormat    Phase = "format"
)

// phaseLabels is the exhaustive display mapping. A phase missing here is a
// bug caught by TestPhaseLabelsExhaustive, not a silent no-op.
var phaseLabels = map[Phase]string{
	PhaseCollect:   "Collecting candidates",
	PhaseHistory:   "Fetching change histories",
	PhaseQualify:   "Checking what actually shipped",
	PhaseSecondary: "Collecting from secondary tracker",
	PhaseEnrich:    "Attaching pull request context",
	PhaseSummarize: "Summarizing",
	PhaseFormat:    "Formatting report",
}

// Label returns the display string for a phase.
func (p Phase) Label() string { return phaseLabels[p] }

// Step is one unit of work in the recipe.
type Step struct {
	Name  string
	Phase Phase // optional
	Run   func(ctx context.Context, rc *Context) (Outcome, error)
}

// Status is a step's lifecycle state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Snapshot is the observable state of one configured step.
type Snapshot struct {
	Name   string `json:"name"`
	Status Status `json:"status"`
	Error  string `json:"error,omitempty"`
}
