// Package stats derives time-windowed and categorical views from the
// expense log: totals, per-category breakdowns and top-N rankings.
package stats

import (
	"context"
	"fmt"
	"time"

	"traty/internal/core"
)

// Fixed presentation limits; not user-configurable.
const (
	TopLimit  = 10
	ListLimit = 50
)

// Store is the slice of the event store the statistics engine reads.
type Store interface {
	ExpensesByWindow(ctx context.Context, userID int64, start, end *time.Time) ([]core.ExpenseRecord, error)
	ExpensesByCategory(ctx context.Context, userID int64, category string) ([]core.ExpenseRecord, error)
	TopExpenses(ctx context.Context, userID int64, n int) ([]core.ExpenseRecord, error)
	LatestExpenses(ctx context.Context, userID int64, limit int) ([]core.ExpenseRecord, error)
}

// Report is an aggregated view over one window or filter.
type Report struct {
	Summary core.Summary
	Records []core.ExpenseRecord
}

type Service struct {
	store Store
	now   func() time.Time
}

func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// SetClock overrides the time source for window computation.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

func (s *Service) Today(ctx context.Context, userID int64) (Report, error) {
	return s.windowed(ctx, userID, core.TodayWindow(s.now()))
}

func (s *Service) Week(ctx context.Context, userID int64) (Report, error) {
	return s.windowed(ctx, userID, core.WeekWindow(s.now()))
}

func (s *Service) Month(ctx context.Context, userID int64) (Report, error) {
	return s.windowed(ctx, userID, core.MonthWindow(s.now()))
}

// Range aggregates over two inclusive calendar days.
func (s *Service) Range(ctx context.Context, userID int64, start, end time.Time) (Report, error) {
	return s.windowed(ctx, userID, core.RangeWindow(start, end))
}

// ByCategory itemizes one category with its running total.
func (s *Service) ByCategory(ctx context.Context, userID int64, category string) (Report, error) {
	records, err := s.store.ExpensesByCategory(ctx, userID, category)
	if err != nil {
		return Report{}, fmt.Errorf("expenses by category: %w", err)
	}
	return Report{Summary: core.Summarize(records), Records: records}, nil
}

// Largest returns the top records by amount, ties most recent first.
func (s *Service) Largest(ctx context.Context, userID int64) (Report, error) {
	records, err := s.store.TopExpenses(ctx, userID, TopLimit)
	if err != nil {
		return Report{}, fmt.Errorf("top expenses: %w", err)
	}
	return Report{Summary: core.Summarize(records), Records: records}, nil
}

// All lists the most recent records up to the fixed listing limit.
func (s *Service) All(ctx context.Context, userID int64) (Report, error) {
	records, err := s.store.LatestExpenses(ctx, userID, ListLimit)
	if err != nil {
		return Report{}, fmt.Errorf("latest expenses: %w", err)
	}
	return Report{Summary: core.Summarize(records), Records: records}, nil
}

func (s *Service) windowed(ctx context.Context, userID int64, w core.Window) (Report, error) {
	records, err := s.store.ExpensesByWindow(ctx, userID, &w.Start, &w.End)
	if err != nil {
		return Report{}, fmt.Errorf("expenses by window: %w", err)
	}
	return Report{Summary: core.Summarize(records), Records: records}, nil
}
