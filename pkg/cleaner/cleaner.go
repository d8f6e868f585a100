// Package cleaner normalizes raw dataset cells before reconciliation.
package cleaner

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/agentstation/mastermap/pkg/identifier"
	"github.com/agentstation/mastermap/pkg/logging"
	"github.com/agentstation/mastermap/pkg/tables"
)

// DefaultAmountKeywords mark monetary columns whose thousands separators are removed.
var DefaultAmountKeywords = []string{
	"amount", "amt", "fee", "price", "total", "money",
	"金额", "单价", "总价", "费用", "成本", "收入", "利润",
}

// DefaultExcludeKeywords mark classification columns that are never treated as amounts.
var DefaultExcludeKeywords = []string{
	"代码", "名称", "单位", "目录", "指标", "code", "name", "unit",
}

var groupedNumber = regexp.MustCompile(`^[+-]?\d{1,3}(,\d{3})+(\.\d+)?$`)

// Stats counts what a clean pass changed.
type Stats struct {
	CellsTrimmed       int `json:"cells_trimmed" yaml:"cells_trimmed"`
	NullsFolded        int `json:"nulls_folded" yaml:"nulls_folded"`
	SeparatorsStripped int `json:"separators_stripped" yaml:"separators_stripped"`
	RowsDropped        int `json:"rows_dropped" yaml:"rows_dropped"`
}

// Changed reports whether anything was modified.
func (s Stats) Changed() bool {
	return s != Stats{}
}

func (s Stats) String() string {
	return fmt.Sprintf("trimmed=%d nulls=%d separators=%d dropped_rows=%d",
		s.CellsTrimmed, s.NullsFolded, s.SeparatorsStripped, s.RowsDropped)
}

// Cleaner trims cells, folds null sentinels to empty, strips thousands
// separators in amount columns and drops rows with no content.
type Cleaner struct {
	amount  []string
	exclude []string
}

// Option configures a Cleaner.
type Option func(*Cleaner)

// WithAmountKeywords replaces the amount column keywords.
func WithAmountKeywords(kw ...string) Option {
	return func(c *Cleaner) { c.amount = kw }
}

// WithExcludeKeywords replaces the keywords that veto amount columns.
func WithExcludeKeywords(kw ...string) Option {
	return func(c *Cleaner) { c.exclude = kw }
}

// New creates a Cleaner.
func New(opts ...Option) *Cleaner {
	c := &Cleaner{amount: DefaultAmountKeywords, exclude: DefaultExcludeKeywords}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// IsAmountColumn reports whether a column holds monetary values.
func (c *Cleaner) IsAmountColumn(name string) bool {
	lower := strings.ToLower(name)
	for _, kw := range c.exclude {
		if strings.Contains(lower, kw) {
			return false
		}
	}
	for _, kw := range c.amount {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// Table cleans t in place.
func (c *Cleaner) Table(ctx context.Context, t *tables.Table) Stats {
	var stats Stats
	amount := make([]bool, len(t.Columns))
	for i, col := range t.Columns {
		amount[i] = c.IsAmountColumn(col)
	}

	kept := t.Rows[:0]
	for _, row := range t.Rows {
		empty := true
		for i, cell := range row {
			v := cell
			switch {
			case identifier.IsNull(v):
				if v != "" {
					stats.NullsFolded++
				}
				v = ""
			case strings.TrimSpace(v) != v:
				v = strings.TrimSpace(v)
				stats.CellsTrimmed++
			}
			if i < len(amount) && amount[i] && groupedNumber.MatchString(v) {
				v = strings.ReplaceAll(v, ",", "")
				stats.SeparatorsStripped++
			}
			row[i] = v
			if v != "" {
				empty = false
			}
		}
		if empty {
			stats.RowsDropped++
			continue
		}
		kept = append(kept, row)
	}
	t.Rows = kept

	logging.FromContext(ctx).Debug().
		Str("dataset", t.ID).
		Str("stats", stats.String()).
		Msg("dataset cleaned")
	return stats
}
