package reports

import (
	"context"
	"sync"
	"time"

	pkgerrors "github.com/preetam988-sanks/AI-Based-Supply-Chain-Dashboard/pkg/errors"
	"github.com/preetam988-sanks/AI-Based-Supply-Chain-Dashboard/pkg/logger"
)

// DefaultTTL applies when a store is built without a positive ttl.
const DefaultTTL = 24 * time.Hour

type memoryEntry struct {
	report    *Report
	expiresAt time.Time
}

// MemoryStore keeps reports in process memory. Expired entries are hidden
// from Get immediately and removed by Sweep.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
	logg    *logger.Logger
}

type MemoryOption func(*MemoryStore)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) { s.now = now }
}

func WithLogger(logg *logger.Logger) MemoryOption {
	return func(s *MemoryStore) { s.logg = logg }
}

func NewMemoryStore(ttl time.Duration, opts ...MemoryOption) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	s := &MemoryStore{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
		logg:    logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) Save(_ context.Context, report *Report) error {
	if report == nil || report.ID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "report id required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[report.ID] = memoryEntry{report: report, expiresAt: s.now().Add(s.ttl)}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[id]
	if !ok || !s.now().Before(entry.expiresAt) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "Error report not found or expired.")
	}
	return entry.report, nil
}

// Sweep drops expired reports and returns how many were removed.
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	removed := 0
	for id, entry := range s.entries {
		if !now.Before(entry.expiresAt) {
			delete(s.entries, id)
			removed++
		}
	}
	return removed
}

// Len reports the number of stored reports, expired or not.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// RunSweeper calls Sweep every interval until ctx is done.
func (s *MemoryStore) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := s.Sweep(); removed > 0 {
				s.logg.Debug(s.logg.WithField(ctx, "removed", removed), "expired import reports swept")
			}
		}
	}
}
