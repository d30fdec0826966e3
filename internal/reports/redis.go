package reports

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	pkgerrors "github.com/preetam988-sanks/AI-Based-Supply-Chain-Dashboard/pkg/errors"
	"github.com/preetam988-sanks/AI-Based-Supply-Chain-Dashboard/pkg/redis"
)

type keyValue interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	ImportReportKey(reportID string) string
}

// RedisStore keeps reports as JSON under sc:import_report:<id> with a TTL.
type RedisStore struct {
	kv  keyValue
	ttl time.Duration
}

func NewRedisStore(kv keyValue, ttl time.Duration) (*RedisStore, error) {
	if kv == nil {
		return nil, fmt.Errorf("redis client required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("report ttl must be positive")
	}
	return &RedisStore{kv: kv, ttl: ttl}, nil
}

func (s *RedisStore) Save(ctx context.Context, report *Report) error {
	if report == nil || report.ID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "report id required")
	}
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if err := s.kv.Set(ctx, s.kv.ImportReportKey(report.ID), string(payload), s.ttl); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store import report")
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (*Report, error) {
	raw, err := s.kv.Get(ctx, s.kv.ImportReportKey(id))
	if errors.Is(err, redis.ErrMiss) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "Error report not found or expired.")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load import report")
	}
	var report Report
	if err := json.Unmarshal([]byte(raw), &report); err != nil {
		return nil, fmt.Errorf("decode report %s: %w", id, err)
	}
	return &report, nil
}
