package mastermap

import (
	"sync"

	"github.com/agentstation/mastermap/pkg/issues"
	"github.com/agentstation/mastermap/pkg/resolution"
)

// Hook function types for reconciliation events
type (
	// IssueHook is called for every issue found in an iteration
	IssueHook func(issue issues.Issue)

	// RowPatchedHook is called for every cell rewritten by a resolution
	RowPatchedHook func(patch resolution.Patch)

	// StateChangeHook is called when the controller changes state
	StateChangeHook func(from, to State)
)

// hooks manages event callbacks
type hooks struct {
	mu            sync.RWMutex
	onIssue       []IssueHook
	onRowPatched  []RowPatchedHook
	onStateChange []StateChangeHook
}

// newHooks creates a new hooks instance
func newHooks() *hooks {
	return &hooks{}
}

// OnIssue registers a callback for issues
func (h *hooks) OnIssue(fn IssueHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onIssue = append(h.onIssue, fn)
}

// OnRowPatched registers a callback for resolution patches
func (h *hooks) OnRowPatched(fn RowPatchedHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onRowPatched = append(h.onRowPatched, fn)
}

// OnStateChange registers a callback for state transitions
func (h *hooks) OnStateChange(fn StateChangeHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onStateChange = append(h.onStateChange, fn)
}

func (h *hooks) triggerIssues(set *issues.Set) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.onIssue) == 0 {
		return
	}
	for _, issue := range set.All() {
		for _, hook := range h.onIssue {
			hook(issue)
		}
	}
}

func (h *hooks) triggerRowPatched(p resolution.Patch) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, hook := range h.onRowPatched {
		hook(p)
	}
}

func (h *hooks) triggerStateChange(from, to State) {
	if from == to {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, hook := range h.onStateChange {
		hook(from, to)
	}
}
