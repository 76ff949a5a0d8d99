package service

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	commonlog "studyhub/server/common/log"
	"studyhub/server/domain"
)

const notificationsExchange = "studyhub.notifications"

// AMQPPublisher pushes notification events onto a topic exchange for
// downstream consumers (email worker, push gateway).
type AMQPPublisher struct {
	channel *amqp.Channel
}

func NewAMQPPublisher(conn *amqp.Connection) (*AMQPPublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, err
	}
	if err := ch.ExchangeDeclare(notificationsExchange, "topic", true, false, false, false, nil); err != nil {
		return nil, err
	}
	return &AMQPPublisher{channel: ch}, nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, routingKey string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return p.channel.PublishWithContext(ctx, notificationsExchange, routingKey, false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
		Timestamp:   time.Now(),
	})
}

func (p *AMQPPublisher) Close() {
	if p.channel != nil {
		_ = p.channel.Close()
	}
}

type NotificationStore interface {
	CreateNotification(ctx context.Context, n domain.Notification) (domain.Notification, error)
	ListNotificationsForUser(ctx context.Context, userID string, limit int) ([]domain.Notification, error)
	MarkNotificationRead(ctx context.Context, notificationID, userID string) error
}

type WatcherStore interface {
	ListWatchers(ctx context.Context, ref domain.WatchRef) ([]domain.User, error)
}

// NotificationService persists an inbox row per notification and, when an
// AMQP publisher is wired, emits the event for out-of-process delivery.
// Dispatch is fire and forget: failures are logged, never returned.
type NotificationService struct {
	store     NotificationStore
	watchers  WatcherStore
	publisher *AMQPPublisher
}

func NewNotificationService(store NotificationStore, watchers WatcherStore, publisher *AMQPPublisher) *NotificationService {
	return &NotificationService{store: store, watchers: watchers, publisher: publisher}
}

func (s *NotificationService) Notify(ctx context.Context, userID, title, body, kind, entityID string) {
	created, err := s.store.CreateNotification(ctx, domain.Notification{
		UserID:   userID,
		Title:    title,
		Body:     body,
		Kind:     kind,
		EntityID: entityID,
	})
	if err != nil {
		commonlog.Warnf("event=notify action=persist status=failed user_id=%s kind=%s error=%v", userID, kind, err)
		return
	}
	if s.publisher == nil {
		commonlog.Infof("event=notify action=dispatch status=local_only user_id=%s kind=%s", userID, kind)
		return
	}
	if err := s.publisher.Publish(ctx, "user."+userID, created); err != nil {
		commonlog.Warnf("event=notify action=publish status=failed user_id=%s kind=%s error=%v", userID, kind, err)
	}
}

// NotifyWatchers fans a notification out to every user watching the entity.
func (s *NotificationService) NotifyWatchers(ctx context.Context, ref domain.WatchRef, title, body, kind string) {
	users, err := s.watchers.ListWatchers(ctx, ref)
	if err != nil {
		commonlog.Warnf("event=notify action=list_watchers status=failed entity=%s:%s error=%v", ref.EntityType, ref.EntityID, err)
		return
	}
	for _, u := range users {
		s.Notify(ctx, u.ID, title, body, kind, ref.EntityID)
	}
}

func (s *NotificationService) ListInbox(ctx context.Context, userID string, limit int) ([]domain.Notification, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.store.ListNotificationsForUser(ctx, userID, limit)
}

func (s *NotificationService) MarkRead(ctx context.Context, userID, notificationID string) error {
	return s.store.MarkNotificationRead(ctx, notificationID, userID)
}
