package mastermap

import (
	"context"
	"fmt"
	"time"

	"github.com/agentstation/mastermap/pkg/issues"
	"github.com/agentstation/mastermap/pkg/resolution"
	"github.com/agentstation/mastermap/pkg/tables"
)

// State is a controller state.
type State int

// Controller states. Converged, AwaitingResolution and MaxIterationsReached
// are terminal for one invocation.
const (
	Idle State = iota
	Building
	Validating
	Converged
	AwaitingResolution
	MaxIterationsReached
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Building:
		return "building"
	case Validating:
		return "validating"
	case Converged:
		return "converged"
	case AwaitingResolution:
		return "awaiting_resolution"
	case MaxIterationsReached:
		return "max_iterations_reached"
	default:
		return "idle"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Terminal reports whether the state ends an invocation.
func (s State) Terminal() bool {
	return s >= Converged
}

// Result is the outcome of ReconcileAll.
type Result struct {
	State State  `json:"state" yaml:"state"`
	RunID string `json:"run_id" yaml:"run_id"`

	// Iterations is the number of build/validate cycles run.
	Iterations int `json:"iterations" yaml:"iterations"`

	// Tables holds the canonical tables followed by the other datasets, in
	// their current state. Set for Converged and MaxIterationsReached.
	Tables []*tables.Table `json:"-" yaml:"-"`

	// ReportKey is where the pending report was written. Set for
	// AwaitingResolution and for MaxIterationsReached with issues left.
	ReportKey string         `json:"report_key,omitempty" yaml:"report_key,omitempty"`
	Report    *issues.Report `json:"-" yaml:"-"`

	// Summary counts the issues of the last iteration.
	Summary issues.Summary `json:"summary" yaml:"summary"`

	// AuthoritySize is the size of the last authority table built.
	AuthoritySize int `json:"authority_size" yaml:"authority_size"`

	// Applied counts the resolution fixes accepted during the run.
	Applied  int                    `json:"applied" yaml:"applied"`
	Rejected []resolution.Rejection `json:"rejected,omitempty" yaml:"rejected,omitempty"`

	// Written lists the keys of datasets persisted during the run.
	Written []string `json:"written,omitempty" yaml:"written,omitempty"`

	// Failed maps dataset ids to the error that made them pass through.
	Failed map[string]string `json:"failed,omitempty" yaml:"failed,omitempty"`

	Duration time.Duration `json:"duration" yaml:"duration"`
}

// String returns a one-line description of the result.
func (r *Result) String() string {
	switch r.State {
	case AwaitingResolution:
		return fmt.Sprintf("awaiting resolution after %d iteration(s): %s (report: %s)",
			r.Iterations, r.Summary, r.ReportKey)
	case MaxIterationsReached:
		return fmt.Sprintf("stopped after %d iterations without converging: %s (report: %s)",
			r.Iterations, r.Summary, r.ReportKey)
	default:
		return fmt.Sprintf("%s after %d iteration(s), authority size %d", r.State, r.Iterations, r.AuthoritySize)
	}
}

// PauseRequest describes a run that needs human input.
type PauseRequest struct {
	RunID     string         `json:"run_id"`
	Namespace string         `json:"namespace"`
	ReportKey string         `json:"report_key"`
	Summary   issues.Summary `json:"summary"`
}

// Pauser asks the surrounding workflow to pause until a resolution is
// uploaded. A failure is logged and never changes the run outcome, since the
// pending report is already durable.
type Pauser interface {
	Pause(ctx context.Context, req PauseRequest) error
}

// PauserFunc adapts a function to Pauser.
type PauserFunc func(ctx context.Context, req PauseRequest) error

// Pause implements Pauser.
func (f PauserFunc) Pause(ctx context.Context, req PauseRequest) error {
	return f(ctx, req)
}
