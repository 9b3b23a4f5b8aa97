package notification

import (
	"context"
	"fmt"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/fatflowers/bookrental/internal/models"
	"github.com/fatflowers/bookrental/internal/platform/mq"
	"github.com/fatflowers/bookrental/pkg/config"
	"github.com/fatflowers/bookrental/pkg/logctx"
	"github.com/fatflowers/bookrental/pkg/tool"
	"github.com/fatflowers/bookrental/pkg/types"
)

// Inbox persists notifications for later listing.
type Inbox interface {
	Save(ctx context.Context, n *models.Notification) error
	List(ctx context.Context, userID string, limit int) ([]*models.Notification, error)
}

// Message is the payload published to the notifications exchange.
type Message struct {
	ID      string                 `json:"id"`
	UserID  string                 `json:"user_id"`
	Title   string                 `json:"title"`
	Message string                 `json:"message"`
	Type    types.NotificationType `json:"type"`
	Link    string                 `json:"link,omitempty"`
}

type Service struct {
	inbox      Inbox
	pub        mq.Publisher
	routingKey string
	log        *zap.SugaredLogger
}

func NewService(inbox Inbox, pub mq.Publisher, cfg *config.Config, log *zap.SugaredLogger) *Service {
	return &Service{inbox: inbox, pub: pub, routingKey: cfg.RabbitMQ.RoutingKey, log: log}
}

// Notify stores an inbox entry and publishes it. A publish failure is only
// logged because the entry is already stored.
func (s *Service) Notify(ctx context.Context, userID, title, message string, typ types.NotificationType, link string) error {
	n := &models.Notification{
		ID:      tool.GenerateUUIDV7(),
		UserID:  userID,
		Title:   title,
		Message: message,
		Type:    typ,
		Link:    link,
	}
	if err := s.inbox.Save(ctx, n); err != nil {
		return fmt.Errorf("failed to save notification: %w", err)
	}
	msg := &Message{ID: n.ID, UserID: userID, Title: title, Message: message, Type: typ, Link: link}
	if err := s.pub.Publish(ctx, s.routingKey, msg); err != nil {
		logctx.FromCtx(ctx, s.log).Warnw("notification_publish_failed", "notification_id", n.ID, "err", err)
	}
	return nil
}

func (s *Service) List(ctx context.Context, userID string, limit int) ([]*models.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.inbox.List(ctx, userID, limit)
}

// GormInbox stores notifications in the notification table.
type GormInbox struct {
	db *gorm.DB
}

func NewGormInbox(db *gorm.DB) *GormInbox { return &GormInbox{db: db} }

func (g *GormInbox) Save(ctx context.Context, n *models.Notification) error {
	return g.db.WithContext(ctx).Create(n).Error
}

func (g *GormInbox) List(ctx context.Context, userID string, limit int) ([]*models.Notification, error) {
	var items []*models.Notification
	err := g.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Limit(limit).Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return items, nil
}

var Module = fx.Options(
	fx.Provide(
		fx.Annotate(NewGormInbox, fx.As(new(Inbox))),
		NewService,
	),
)
