package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/preetam988-sanks/AI-Based-Supply-Chain-Dashboard/pkg/db"
	"github.com/preetam988-sanks/AI-Based-Supply-Chain-Dashboard/pkg/db/models"
	"github.com/preetam988-sanks/AI-Based-Supply-Chain-Dashboard/pkg/enums"
	"github.com/preetam988-sanks/AI-Based-Supply-Chain-Dashboard/pkg/logger"
)

func newOutboxDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file:outbox_"+uuid.NewString()+"?mode=memory&cache=shared"), db.GormConfig())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&models.OutboxEvent{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return conn
}

func TestEmitCommitsWithTransaction(t *testing.T) {
	conn := newOutboxDB(t)
	client := db.NewFromGorm(conn)
	repo := NewRepository(conn)
	svc := NewService(repo, logger.Nop())
	orderID := uuid.New()

	err := client.WithTx(context.Background(), func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   orderID,
			Actor:         &ActorRef{Source: "single"},
			Data:          map[string]any{"total": "374.15"},
		})
	})
	if err != nil {
		t.Fatalf("emit: %v", err)
	}

	rows, err := repo.ListForAggregate(context.Background(), enums.AggregateOrder, orderID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 event, got %d", len(rows))
	}
	var env PayloadEnvelope
	if err := json.Unmarshal(rows[0].Payload, &env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if env.Version != 1 || env.EventID == "" || env.Actor == nil || env.Actor.Source != "single" {
		t.Fatalf("unexpected envelope %+v", env)
	}
	if string(env.Data) != `{"total":"374.15"}` {
		t.Fatalf("unexpected data %s", env.Data)
	}
}

func TestEmitRollsBackWithTransaction(t *testing.T) {
	conn := newOutboxDB(t)
	client := db.NewFromGorm(conn)
	repo := NewRepository(conn)
	svc := NewService(repo, nil)
	orderID := uuid.New()

	_ = client.WithTx(context.Background(), func(tx *gorm.DB) error {
		if err := svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   orderID,
		}); err != nil {
			return err
		}
		return errors.New("business failure")
	})

	rows, err := repo.ListForAggregate(context.Background(), enums.AggregateOrder, orderID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected rollback to discard event, got %d", len(rows))
	}
}

func TestEmitValidatesInput(t *testing.T) {
	svc := NewService(NewRepository(nil), nil)
	if err := svc.Emit(context.Background(), nil, DomainEvent{}); err == nil {
		t.Fatalf("expected transaction required error")
	}
	conn := newOutboxDB(t)
	if err := svc.Emit(context.Background(), conn, DomainEvent{EventType: "bogus", AggregateType: enums.AggregateOrder}); err == nil {
		t.Fatalf("expected unknown event type error")
	}
}
