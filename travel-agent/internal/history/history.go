// Package history keeps a short-lived log of conversation turns per session in Redis.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/Divas-Gupta30/hybrid-chat/travel-agent/internal/config"
)

// Turn is one answered question.
type Turn struct {
	Question string    `json:"question"`
	Route    string    `json:"route"`
	Answer   string    `json:"answer"`
	At       time.Time `json:"at"`
}

// Store appends and lists turns. A nil *Store is valid and keeps nothing.
type Store struct {
	client *redis.Client
	ttl    time.Duration
	log    *zap.Logger
}

// Connect returns nil when no address is configured or Redis cannot be reached;
// the assistant then works without history.
func Connect(ctx context.Context, cfg config.RedisConfig, log *zap.Logger) *Store {
	if cfg.Addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := client.Ping(ctx).Result(); err != nil {
		log.Warn("redis unavailable, turn history disabled", zap.String("addr", cfg.Addr), zap.Error(err))
		_ = client.Close()
		return nil
	}
	log.Info("connected to redis", zap.String("addr", cfg.Addr))
	return &Store{client: client, ttl: time.Duration(cfg.TTLSeconds) * time.Second, log: log}
}

func key(session string) string {
	return fmt.Sprintf("travel:session:%s:turns", session)
}

// Append records a turn and refreshes the session's expiry.
func (s *Store) Append(ctx context.Context, session string, t Turn) error {
	if s == nil {
		return nil
	}
	b, err := json.Marshal(t)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, key(session), b)
	if s.ttl > 0 {
		pipe.Expire(ctx, key(session), s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("appending turn: %w", err)
	}
	return nil
}

// Turns lists a session's turns, oldest first.
func (s *Store) Turns(ctx context.Context, session string) ([]Turn, error) {
	if s == nil {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	raw, err := s.client.LRange(ctx, key(session), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("listing turns: %w", err)
	}
	turns := make([]Turn, 0, len(raw))
	for _, r := range raw {
		var t Turn
		if err := json.Unmarshal([]byte(r), &t); err != nil {
			s.log.Warn("dropping unreadable turn", zap.String("session", session), zap.Error(err))
			continue
		}
		turns = append(turns, t)
	}
	return turns, nil
}

// Ping reports whether Redis is reachable; a nil store is never reachable.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil {
		return fmt.Errorf("redis not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.client.Ping(ctx).Err()
}

func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	return s.client.Close()
}
