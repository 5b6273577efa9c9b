package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Veraticus/smarttransit/internal/common"
	"github.com/Veraticus/smarttransit/internal/model"
	"github.com/google/uuid"
)

// ReportsKey is the fixed key of the report collection.
const ReportsKey = "smarttransit_reports_v2"

// ReportStats summarizes the report history.
type ReportStats struct {
	Total int
	Today int
}

// ReportStore keeps generated reports, most recent first.
// The list is loaded once and written back in full on every mutation.
type ReportStore struct {
	kv      KV
	now     func() time.Time
	newID   func() string
	reports []model.Report
	mu      sync.RWMutex
}

// ReportStoreOption configures a ReportStore.
type ReportStoreOption func(*ReportStore)

// WithReportClock overrides the clock used for default timestamps and stats.
func WithReportClock(now func() time.Time) ReportStoreOption {
	return func(s *ReportStore) {
		s.now = now
	}
}

// NewReportStore loads the persisted reports. Malformed persisted data is
// logged and treated as an empty collection.
func NewReportStore(ctx context.Context, kv KV, opts ...ReportStoreOption) (*ReportStore, error) {
	if kv == nil {
		return nil, fmt.Errorf("%w: kv", common.ErrMissingConfig)
	}

	s := &ReportStore{
		kv:    kv,
		now:   time.Now,
		newID: func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(s)
	}

	reports, err := s.load(ctx)
	if err != nil {
		slog.Error("Failed to load reports, starting empty", "key", ReportsKey, "error", err)
		reports = nil
	}
	s.reports = reports

	return s, nil
}

func (s *ReportStore) load(ctx context.Context) ([]model.Report, error) {
	raw, ok, err := s.kv.Get(ctx, ReportsKey)
	if err != nil {
		return nil, err
	}
	if !ok || len(raw) == 0 {
		return nil, nil
	}

	var reports []model.Report
	if err := json.Unmarshal(raw, &reports); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrMalformedState, err)
	}

	for i := range reports {
		s.applyDefaults(&reports[i])
	}
	return reports, nil
}

func (s *ReportStore) applyDefaults(r *model.Report) {
	if r.ID == "" {
		r.ID = s.newID()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.now()
	}
	if r.Status == "" {
		r.Status = model.ReportCompleted
	}
	if r.Size == "" {
		r.Size = model.DefaultReportSize
	}
}

// persist must be called with the write lock held.
func (s *ReportStore) persist(ctx context.Context) error {
	data, err := json.Marshal(s.reports)
	if err != nil {
		return fmt.Errorf("failed to encode reports: %w", err)
	}
	if err := s.kv.Put(ctx, ReportsKey, data); err != nil {
		return fmt.Errorf("failed to save reports: %w", err)
	}
	return nil
}

// Add stores a report at the head of the list. Missing id, creation time,
// status and size are filled in. The stored record is returned even when
// persisting fails.
func (s *ReportStore) Add(ctx context.Context, report model.Report) (model.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.applyDefaults(&report)
	s.reports = append([]model.Report{report}, s.reports...)

	if err := s.persist(ctx); err != nil {
		slog.Error("Failed to persist reports", "error", err)
		return report, err
	}
	return report, nil
}

// List returns a copy of the current reports, most recent first.
func (s *ReportStore) List() []model.Report {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Report, len(s.reports))
	copy(out, s.reports)
	return out
}

// Get returns the report with the given id.
func (s *ReportStore) Get(id string) (model.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.reports {
		if r.ID == id {
			return r, nil
		}
	}
	return model.Report{}, fmt.Errorf("report %s: %w", id, common.ErrNotFound)
}

// Remove deletes the report with the given id. Removing an unknown id
// still rewrites the collection.
func (s *ReportStore) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.reports[:0:0]
	for _, r := range s.reports {
		if r.ID != id {
			kept = append(kept, r)
		}
	}
	s.reports = kept

	return s.persist(ctx)
}

// Stats counts all reports and those created on the current calendar day.
func (s *ReportStore) Stats() ReportStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	y, m, d := now.Date()

	stats := ReportStats{Total: len(s.reports)}
	for _, r := range s.reports {
		ry, rm, rd := r.CreatedAt.In(now.Location()).Date()
		if ry == y && rm == m && rd == d {
			stats.Today++
		}
	}
	return stats
}
