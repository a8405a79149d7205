// Package redis is the shared ledger backend. Several clients pointed at
// the same server see each other's writes through Pub/Sub change events.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/j-veylop/usage-ledger-tui/internal/logger"
	"github.com/j-veylop/usage-ledger-tui/internal/models"
	"github.com/j-veylop/usage-ledger-tui/internal/realtime"
	"github.com/j-veylop/usage-ledger-tui/internal/store"
)

var _ store.Store = (*Store)(nil)

// Options configures the connection.
type Options struct {
	Addr     string
	Password string
	DB       int
	// Source tags the change events published by this client.
	Source string
}

// Store implements store.Store on Redis.
type Store struct {
	client *redis.Client
	pubsub *redis.PubSub
	hub    *realtime.Hub
	done   chan struct{}
	source string

	closeOnce sync.Once
}

// Open connects to Redis and starts listening for change events.
func Open(opts Options) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		Protocol:     2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	// Ping to verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	pubsub := client.PSubscribe(ctx, changesPattern)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		_ = client.Close()
		return nil, fmt.Errorf("failed to subscribe to changes: %w", err)
	}

	source := opts.Source
	if source == "" {
		source = fmt.Sprintf("redis:%d", os.Getpid())
	}

	s := &Store{
		client: client,
		pubsub: pubsub,
		hub:    realtime.NewHub(realtime.DefaultBuffer),
		done:   make(chan struct{}),
		source: source,
	}
	go s.listen()

	return s, nil
}

// listen forwards Pub/Sub messages to the local hub until the
// subscription is closed.
func (s *Store) listen() {
	defer close(s.done)

	for msg := range s.pubsub.Channel() {
		var ev models.ChangeEvent
		if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
			logger.Warn("dropping malformed change event", "channel", msg.Channel, "error", err)
			continue
		}
		s.hub.Publish(ev)
	}
}

// Subscribe registers for change events on table, from every client.
func (s *Store) Subscribe(table models.Table) (<-chan models.ChangeEvent, func()) {
	return s.hub.Subscribe(table)
}

func (s *Store) publish(ctx context.Context, table models.Table, op models.ChangeOp, userID string, accountID int) {
	ev := models.ChangeEvent{
		At:        time.Now(),
		Table:     table,
		Op:        op,
		UserID:    userID,
		Source:    s.source,
		AccountID: accountID,
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		logger.Warn("failed to encode change event", "error", err)
		return
	}
	if err := s.client.Publish(ctx, changesChannel(userID), payload).Err(); err != nil {
		logger.Warn("failed to publish change event", "table", table, "error", err)
	}
}

// Close stops the change feed and closes the Redis connection.
func (s *Store) Close() error {
	var err error
	s.closeOnce.Do(func() {
		_ = s.pubsub.Close()
		<-s.done
		s.hub.Close()
		err = s.client.Close()
	})
	return err
}
