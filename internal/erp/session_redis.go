package erp

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/nacl/secretbox"
)

const defaultSessionKey = "erpgw:session"

// RedisStore keeps the session under a single Redis key so every gateway
// replica shares it. The payload is sealed with secretbox because it holds
// the upstream sid.
type RedisStore struct {
	client *redis.Client
	key    string
	ttl    time.Duration
	secret [32]byte
}

// NewRedisStore constructs a RedisStore. A zero ttl keeps the key until cleared.
func NewRedisStore(client *redis.Client, secret string, ttl time.Duration) *RedisStore {
	return &RedisStore{
		client: client,
		key:    defaultSessionKey,
		ttl:    ttl,
		secret: sha256.Sum256([]byte(secret)),
	}
}

// Load reads and opens the stored session.
func (s *RedisStore) Load(ctx context.Context) (*Session, error) {
	sealed, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("erp: load session: %w", err)
	}
	if len(sealed) < 24 {
		return nil, fmt.Errorf("erp: load session: payload too short")
	}
	var nonce [24]byte
	copy(nonce[:], sealed[:24])
	plain, ok := secretbox.Open(nil, sealed[24:], &nonce, &s.secret)
	if !ok {
		return nil, fmt.Errorf("erp: load session: payload cannot be opened")
	}
	var sess Session
	if err := json.Unmarshal(plain, &sess); err != nil {
		return nil, fmt.Errorf("erp: load session: %w", err)
	}
	return &sess, nil
}

// Save seals and stores the session, replacing any previous one.
func (s *RedisStore) Save(ctx context.Context, sess *Session) error {
	if sess == nil {
		return s.Clear(ctx)
	}
	plain, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	var nonce [24]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return err
	}
	sealed := secretbox.Seal(nonce[:], plain, &nonce, &s.secret)
	if err := s.client.Set(ctx, s.key, sealed, s.ttl).Err(); err != nil {
		return fmt.Errorf("erp: save session: %w", err)
	}
	return nil
}

// Clear deletes the stored session.
func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("erp: clear session: %w", err)
	}
	return nil
}
