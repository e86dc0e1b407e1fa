package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Publisher is the surface ledger services emit through. Every state change
// produces exactly one event.
type Publisher interface {
	Publish(ctx context.Context, evt Event)
}

// Service persists emitted events and pushes them to the WebSocket hub.
type Service struct {
	db     *gorm.DB
	hub    *Hub
	logger *zap.Logger
}

// NewService creates the event service and migrates its table.
func NewService(db *gorm.DB, hub *Hub, logger *zap.Logger) (*Service, error) {
	if err := db.AutoMigrate(&LedgerEvent{}); err != nil {
		return nil, fmt.Errorf("failed to migrate events: %w", err)
	}
	return &Service{db: db, hub: hub, logger: logger}, nil
}

// Publish records the event and broadcasts it. Persistence failures are
// logged, never surfaced: an event write must not fail a committed ledger
// operation.
func (s *Service) Publish(ctx context.Context, evt Event) {
	payload, err := json.Marshal(evt.Payload)
	if err != nil {
		s.logger.Error("marshal event payload", zap.String("type", evt.Type), zap.Error(err))
		payload = []byte("{}")
	}

	record := &LedgerEvent{
		ID:      uuid.New(),
		Type:    evt.Type,
		Account: evt.Account,
		Payload: payload,
	}
	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		s.logger.Error("persist event", zap.String("type", evt.Type), zap.Error(err))
	}

	if s.hub != nil {
		s.hub.Broadcast(WebSocketMessage{
			Type:      evt.Type,
			Account:   evt.Account,
			Payload:   evt.Payload,
			Timestamp: time.Now(),
		})
	}

	s.logger.Info("event emitted",
		zap.String("type", evt.Type),
		zap.String("account", evt.Account))
}

// ListRecent returns the newest events, most recent first.
func (s *Service) ListRecent(ctx context.Context, limit int) ([]LedgerEvent, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var out []LedgerEvent
	err := s.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&out).Error
	return out, err
}

// ListByAccount returns events for one account, most recent first.
func (s *Service) ListByAccount(ctx context.Context, account string, limit int) ([]LedgerEvent, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var out []LedgerEvent
	err := s.db.WithContext(ctx).Where("account = ?", account).
		Order("created_at DESC").Limit(limit).Find(&out).Error
	return out, err
}

// NopPublisher discards events; used where no event sink is wired.
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, evt Event) {}
