// Package progress rolls answer records up into dashboard-ready completion
// ratios, per work item and across a whole scope.
package progress

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/tallgren/gatecheck/internal/domain/answers"
	"github.com/tallgren/gatecheck/internal/domain/scoring"
	"github.com/tallgren/gatecheck/internal/host"
)

// Summary is the completion state of one answer record. Done and Count are
// question counts recovered from the weight sums, not weight totals.
type Summary struct {
	WorkItemID int64   `json:"workItemId,omitempty"`
	Done       int     `json:"done"`
	Count      int     `json:"count"`
	Percent    float64 `json:"percent"`
}

// Overview aggregates a scope's work items for the dashboard.
type Overview struct {
	Items   []Summary `json:"items"`
	Done    int       `json:"done"`
	Count   int       `json:"count"`
	Percent float64   `json:"percent"`
}

// FromRecord computes the summary for one record. Bit counting happens per
// question, where the disjoint power-of-two weight invariant holds; the
// counts are then summed across the checked questions. Legacy flat records
// carry no per-question entries, so their stored record-level integers are
// counted directly (their weights were assigned per question).
func FromRecord(rec *answers.Record) Summary {
	var done, count int
	for _, qa := range rec.Data {
		if !qa.Checked {
			continue
		}
		d, c := scoring.Counts(qa.UniqueResult, qa.TotalWeight)
		done += d
		count += c
	}
	if count == 0 && rec.TotalWeight > 0 {
		done, count = scoring.Counts(rec.UniqueResult, rec.TotalWeight)
	}

	s := Summary{Done: done, Count: count}
	if count > 0 {
		s.Percent = float64(done) / float64(count) * 100
	}
	return s
}

// Aggregator scans a scope's work items and summarizes their answer fields.
type Aggregator struct {
	items  host.WorkItems
	field  string
	logger *slog.Logger
}

// NewAggregator creates an aggregator reading the given answers field name.
func NewAggregator(items host.WorkItems, field string, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{items: items, field: field, logger: logger}
}

// Overview summarizes every work item in the scope. Items whose answers
// field cannot be decoded are skipped with a log entry rather than failing
// the whole dashboard. An empty scope yields a zero overview.
func (a *Aggregator) Overview(ctx context.Context, scope string) (*Overview, error) {
	ids, err := a.items.List(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("listing work items: %w", err)
	}

	out := &Overview{Items: []Summary{}}
	for _, id := range ids {
		summary, err := a.summarize(ctx, scope, id)
		if err != nil {
			a.logger.Warn("skipping work item in overview", "work_item", id, "error", err)
			continue
		}
		out.Items = append(out.Items, *summary)
		out.Done += summary.Done
		out.Count += summary.Count
	}

	sort.Slice(out.Items, func(i, j int) bool {
		return out.Items[i].WorkItemID < out.Items[j].WorkItemID
	})
	if out.Count > 0 {
		out.Percent = float64(out.Done) / float64(out.Count) * 100
	}
	return out, nil
}

// Summarize computes the summary for a single work item.
func (a *Aggregator) Summarize(ctx context.Context, scope string, id int64) (*Summary, error) {
	return a.summarize(ctx, scope, id)
}

func (a *Aggregator) summarize(ctx context.Context, scope string, id int64) (*Summary, error) {
	fields, err := a.items.Open(ctx, scope, id)
	if err != nil {
		return nil, fmt.Errorf("opening work item: %w", err)
	}
	raw, err := fields.GetFieldValue(ctx, a.field)
	if err != nil {
		return nil, fmt.Errorf("reading answers field: %w", err)
	}
	rec, err := answers.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("decoding answers field: %w", err)
	}

	summary := FromRecord(rec)
	summary.WorkItemID = id
	return &summary, nil
}
