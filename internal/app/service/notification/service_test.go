package notification

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fatflowers/bookrental/internal/models"
	"github.com/fatflowers/bookrental/pkg/config"
	"github.com/fatflowers/bookrental/pkg/types"
)

type fakeInbox struct {
	saved []*models.Notification
	err   error
}

func (f *fakeInbox) Save(_ context.Context, n *models.Notification) error {
	if f.err != nil {
		return f.err
	}
	f.saved = append(f.saved, n)
	return nil
}

func (f *fakeInbox) List(_ context.Context, userID string, limit int) ([]*models.Notification, error) {
	var out []*models.Notification
	for _, n := range f.saved {
		if n.UserID == userID && len(out) < limit {
			out = append(out, n)
		}
	}
	return out, nil
}

type fakePublisher struct {
	keys []string
	msgs []any
	err  error
}

func (f *fakePublisher) Publish(_ context.Context, key string, msg any) error {
	if f.err != nil {
		return f.err
	}
	f.keys = append(f.keys, key)
	f.msgs = append(f.msgs, msg)
	return nil
}

func newTestService(inbox *fakeInbox, pub *fakePublisher) *Service {
	cfg := &config.Config{RabbitMQ: config.RabbitMQConfig{RoutingKey: "user.notification"}}
	return NewService(inbox, pub, cfg, zap.NewNop().Sugar())
}

func TestNotify_SavesAndPublishes(t *testing.T) {
	inbox, pub := &fakeInbox{}, &fakePublisher{}
	svc := newTestService(inbox, pub)

	err := svc.Notify(context.Background(), "u1", "Rental started", "Enjoy Dune", types.NotificationTypeRental, "/books/b1")
	require.NoError(t, err)

	require.Len(t, inbox.saved, 1)
	assert.NotEmpty(t, inbox.saved[0].ID)
	require.Len(t, pub.msgs, 1)
	assert.Equal(t, "user.notification", pub.keys[0])
	msg := pub.msgs[0].(*Message)
	assert.Equal(t, inbox.saved[0].ID, msg.ID)
	assert.Equal(t, "/books/b1", msg.Link)

	items, err := svc.List(context.Background(), "u1", 0)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestNotify_PublishFailureIsNotAnError(t *testing.T) {
	inbox, pub := &fakeInbox{}, &fakePublisher{err: errors.New("channel closed")}
	svc := newTestService(inbox, pub)

	require.NoError(t, svc.Notify(context.Background(), "u1", "t", "m", types.NotificationTypeSubscription, ""))
	assert.Len(t, inbox.saved, 1)
}

func TestNotify_SaveFailure(t *testing.T) {
	inbox, pub := &fakeInbox{err: errors.New("db down")}, &fakePublisher{}
	svc := newTestService(inbox, pub)

	err := svc.Notify(context.Background(), "u1", "t", "m", types.NotificationTypeRental, "")
	require.Error(t, err)
	assert.Empty(t, pub.msgs)
}
