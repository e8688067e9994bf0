package identity

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ChallengeStore holds issued login nonces until they are consumed or expire.
// A nonce is taken exactly once: Take removes it, so a second authentication
// attempt with the same signed challenge fails.
type ChallengeStore interface {
	// Put stores the challenge issued for an address, replacing any earlier
	// unconsumed challenge for the same address.
	Put(ctx context.Context, ch *Challenge) error

	// Take retrieves and removes the live challenge for an address.
	// Returns ErrChallengeNotFound if none exists or it has expired.
	Take(ctx context.Context, address string) (*Challenge, error)
}

// InMemoryChallengeStore implements ChallengeStore with in-memory storage.
type InMemoryChallengeStore struct {
	mu         sync.Mutex
	challenges map[string]*Challenge
}

// NewInMemoryChallengeStore creates a new in-memory challenge store.
func NewInMemoryChallengeStore() *InMemoryChallengeStore {
	return &InMemoryChallengeStore{
		challenges: make(map[string]*Challenge),
	}
}

// Put stores the challenge issued for an address.
func (s *InMemoryChallengeStore) Put(_ context.Context, ch *Challenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *ch
	s.challenges[strings.ToLower(ch.Address)] = &copied
	return nil
}

// Take retrieves and removes the live challenge for an address.
func (s *InMemoryChallengeStore) Take(_ context.Context, address string) (*Challenge, error) {
	key := strings.ToLower(address)

	s.mu.Lock()
	defer s.mu.Unlock()

	ch, ok := s.challenges[key]
	if !ok {
		return nil, ErrChallengeNotFound
	}
	delete(s.challenges, key)

	if time.Now().After(ch.ExpiresAt) {
		return nil, ErrChallengeNotFound
	}
	return ch, nil
}

// DeleteExpired removes expired challenges and returns how many were dropped.
// Intended to run periodically; Take already rejects expired entries, so this
// only bounds memory growth.
func (s *InMemoryChallengeStore) DeleteExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	deleted := 0
	for key, ch := range s.challenges {
		if now.After(ch.ExpiresAt) {
			delete(s.challenges, key)
			deleted++
		}
	}
	return deleted
}

// RedisChallengeStore implements ChallengeStore on redis, letting the replay
// window survive process restarts and span replicas. Expiry is delegated to
// redis key TTLs.
type RedisChallengeStore struct {
	client *redis.Client
	prefix string
}

// NewRedisChallengeStore creates a redis-backed challenge store.
func NewRedisChallengeStore(client *redis.Client) *RedisChallengeStore {
	return &RedisChallengeStore{
		client: client,
		prefix: "docledger:challenge:",
	}
}

// Put stores the challenge issued for an address with a TTL.
func (s *RedisChallengeStore) Put(ctx context.Context, ch *Challenge) error {
	ttl := time.Until(ch.ExpiresAt)
	if ttl <= 0 {
		return errors.New("challenge already expired")
	}

	key := s.prefix + strings.ToLower(ch.Address)
	// Nonce and text are packed with a separator that cannot appear in a
	// hex nonce.
	value := ch.Nonce + "|" + ch.Text
	return s.client.Set(ctx, key, value, ttl).Err()
}

// Take retrieves and removes the live challenge for an address. GETDEL makes
// consumption atomic across concurrent authentication attempts.
func (s *RedisChallengeStore) Take(ctx context.Context, address string) (*Challenge, error) {
	key := s.prefix + strings.ToLower(address)

	value, err := s.client.GetDel(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrChallengeNotFound
	}
	if err != nil {
		return nil, err
	}

	nonce, text, found := strings.Cut(value, "|")
	if !found {
		return nil, ErrChallengeNotFound
	}
	return &Challenge{
		Address: strings.ToLower(address),
		Nonce:   nonce,
		Text:    text,
	}, nil
}
