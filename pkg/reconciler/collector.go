package reconciler

import (
	"slices"
	"sync"

	"github.com/agentstation/mastermap/pkg/issues"
)

// collector gathers per-dataset results from concurrent workers. It is the
// only state shared between them.
type collector struct {
	mu       sync.Mutex
	datasets []*DatasetResult
	failed   map[string]error
	issues   *issues.Set
}

// newCollector creates an empty collector.
func newCollector() *collector {
	return &collector{
		failed: make(map[string]error),
		issues: issues.NewSet(),
	}
}

func (c *collector) add(res *DatasetResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.datasets = append(c.datasets, res)
}

func (c *collector) fail(dataset string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failed[dataset] = err
}

// finish merges dataset issues in input order, so reports do not depend on
// worker scheduling.
func (c *collector) finish() ([]*DatasetResult, map[string]error, *issues.Set) {
	c.mu.Lock()
	defer c.mu.Unlock()

	slices.SortFunc(c.datasets, func(a, b *DatasetResult) int {
		return a.Index - b.Index
	})
	for _, d := range c.datasets {
		c.issues.Merge(d.Issues)
	}
	return c.datasets, c.failed, c.issues
}
