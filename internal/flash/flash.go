// Package flash carries one-shot status messages from a mutation to the next
// rendered page of the same browser.
package flash

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/aryan0dhankhar/grievanceportal/internal/infrastructure/redis"
	"github.com/aryan0dhankhar/grievanceportal/pkg/cache"
)

const (
	CookieName = "grievance_flash_id"
	keyPrefix  = "flash:"
	queueTTL   = 10 * time.Minute
)

const (
	Success = "success"
	Info    = "info"
	Danger  = "danger"
)

type Message struct {
	Category string `json:"category"`
	Text     string `json:"text"`
}

// Store is a per-browser queue that is emptied when read
type Store interface {
	Push(ctx context.Context, id string, msg Message) error
	Drain(ctx context.Context, id string) ([]Message, error)
}

type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Push(ctx context.Context, id string, msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if err := s.client.Append(ctx, keyPrefix+id, queueTTL, string(data)); err != nil {
		return fmt.Errorf("push flash: %w", err)
	}
	return nil
}

func (s *RedisStore) Drain(ctx context.Context, id string) ([]Message, error) {
	raw, err := s.client.Drain(ctx, keyPrefix+id)
	if err != nil {
		return nil, fmt.Errorf("drain flash: %w", err)
	}
	msgs := make([]Message, 0, len(raw))
	for _, r := range raw {
		var m Message
		if err := json.Unmarshal([]byte(r), &m); err != nil {
			continue
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}

type MemoryStore struct {
	cache *cache.Cache
}

func NewMemoryStore(c *cache.Cache) *MemoryStore {
	return &MemoryStore{cache: c}
}

func (s *MemoryStore) Push(_ context.Context, id string, msg Message) error {
	s.cache.Update(keyPrefix+id, queueTTL, func(cur interface{}) interface{} {
		list, _ := cur.([]Message)
		return append(list, msg)
	})
	return nil
}

func (s *MemoryStore) Drain(_ context.Context, id string) ([]Message, error) {
	v, ok := s.cache.Take(keyPrefix + id)
	if !ok {
		return nil, nil
	}
	list, _ := v.([]Message)
	return list, nil
}

// Flasher binds the queue to a browser through the flash id cookie
type Flasher struct {
	store  Store
	secure bool
	logger *slog.Logger
}

func New(store Store, secure bool, logger *slog.Logger) *Flasher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Flasher{store: store, secure: secure, logger: logger}
}

// Add queues a message for the browser behind r, issuing a flash id cookie
// if it has none yet. Failures are logged; a lost flash never fails a request.
func (f *Flasher) Add(w http.ResponseWriter, r *http.Request, category, text string) {
	id := f.id(r)
	if id == "" {
		id = uuid.NewString()
		http.SetCookie(w, &http.Cookie{
			Name:     CookieName,
			Value:    id,
			Path:     "/",
			HttpOnly: true,
			Secure:   f.secure,
			SameSite: http.SameSiteLaxMode,
		})
	}
	if err := f.store.Push(r.Context(), id, Message{Category: category, Text: text}); err != nil {
		f.logger.Error("failed to queue flash message", slog.String("error", err.Error()))
	}
}

// Pop returns and clears the queued messages for the browser behind r
func (f *Flasher) Pop(r *http.Request) []Message {
	id := f.id(r)
	if id == "" {
		return nil
	}
	msgs, err := f.store.Drain(r.Context(), id)
	if err != nil {
		f.logger.Error("failed to read flash messages", slog.String("error", err.Error()))
		return nil
	}
	return msgs
}

func (f *Flasher) id(r *http.Request) string {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return ""
	}
	if _, err := uuid.Parse(c.Value); err != nil {
		return ""
	}
	return c.Value
}
