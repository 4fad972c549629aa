// Package cache persists per-book board state (inventory and slot
// assignments) in Redis as JSON snapshots.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"cardbook/api/internal/book"

	"github.com/redis/go-redis/v9"
)

const (
	inventoryPrefix = "inventory:"
	slotsPrefix     = "slots:"
)

// Store is a Redis-backed snapshot store for board state. Snapshots
// never expire; the board is the source of truth for its book.
//
// A load primes the skip-first-save guard for that book: the first save
// after a load is dropped, so re-persisting freshly loaded state cannot
// clobber a concurrent writer. Every later save goes through.
type Store struct {
	client *redis.Client

	mu            sync.Mutex
	skipInventory map[string]bool
	skipSlots     map[string]bool
}

// NewStore connects to Redis at the given URL and verifies the
// connection before returning.
func NewStore(redisURL string) (*Store, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return newStore(client), nil
}

// NewStoreWithClient creates a store from an existing Redis client.
func NewStoreWithClient(client *redis.Client) *Store {
	return newStore(client)
}

func newStore(client *redis.Client) *Store {
	return &Store{
		client:        client,
		skipInventory: map[string]bool{},
		skipSlots:     map[string]bool{},
	}
}

// LoadInventory returns the persisted inventory for a book. Each card
// is migrated to the current type-data shape on the way in. A missing
// or unreadable snapshot yields an empty inventory, not an error.
func (s *Store) LoadInventory(ctx context.Context, bookID string) ([]book.Card, error) {
	s.armSkip(s.skipInventory, bookID)

	raw, err := s.client.Get(ctx, inventoryPrefix+bookID).Result()
	if err == redis.Nil {
		return []book.Card{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load inventory %s: %w", bookID, err)
	}

	var cards []book.Card
	if err := json.Unmarshal([]byte(raw), &cards); err != nil {
		log.Printf("cache: corrupt inventory snapshot for book %s, starting empty: %v", bookID, err)
		return []book.Card{}, nil
	}

	for i := range cards {
		cards[i] = book.MigrateCard(cards[i])
	}
	return cards, nil
}

// LoadSlots returns the persisted slot assignments for a book. A
// missing or unreadable snapshot yields an empty map, not an error.
func (s *Store) LoadSlots(ctx context.Context, bookID string) (book.SlotAssignments, error) {
	s.armSkip(s.skipSlots, bookID)

	raw, err := s.client.Get(ctx, slotsPrefix+bookID).Result()
	if err == redis.Nil {
		return book.SlotAssignments{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load slots %s: %w", bookID, err)
	}

	var slots book.SlotAssignments
	if err := json.Unmarshal([]byte(raw), &slots); err != nil {
		log.Printf("cache: corrupt slots snapshot for book %s, starting empty: %v", bookID, err)
		return book.SlotAssignments{}, nil
	}
	if slots == nil {
		slots = book.SlotAssignments{}
	}
	return slots, nil
}

// SaveInventory persists the inventory snapshot for a book. The first
// save after a load of the same book is dropped.
func (s *Store) SaveInventory(ctx context.Context, bookID string, cards []book.Card) error {
	if s.consumeSkip(s.skipInventory, bookID) {
		return nil
	}
	if cards == nil {
		cards = []book.Card{}
	}
	raw, err := json.Marshal(cards)
	if err != nil {
		return fmt.Errorf("marshal inventory %s: %w", bookID, err)
	}
	if err := s.client.Set(ctx, inventoryPrefix+bookID, raw, 0).Err(); err != nil {
		return fmt.Errorf("save inventory %s: %w", bookID, err)
	}
	return nil
}

// SaveSlots persists the slot assignment snapshot for a book. The first
// save after a load of the same book is dropped.
func (s *Store) SaveSlots(ctx context.Context, bookID string, slots book.SlotAssignments) error {
	if s.consumeSkip(s.skipSlots, bookID) {
		return nil
	}
	if slots == nil {
		slots = book.SlotAssignments{}
	}
	raw, err := json.Marshal(slots)
	if err != nil {
		return fmt.Errorf("marshal slots %s: %w", bookID, err)
	}
	if err := s.client.Set(ctx, slotsPrefix+bookID, raw, 0).Err(); err != nil {
		return fmt.Errorf("save slots %s: %w", bookID, err)
	}
	return nil
}

// DeleteBook removes both snapshots for a book.
func (s *Store) DeleteBook(ctx context.Context, bookID string) error {
	if err := s.client.Del(ctx, inventoryPrefix+bookID, slotsPrefix+bookID).Err(); err != nil {
		return fmt.Errorf("delete board state %s: %w", bookID, err)
	}
	s.mu.Lock()
	delete(s.skipInventory, bookID)
	delete(s.skipSlots, bookID)
	s.mu.Unlock()
	return nil
}

func (s *Store) armSkip(m map[string]bool, bookID string) {
	s.mu.Lock()
	m[bookID] = true
	s.mu.Unlock()
}

func (s *Store) consumeSkip(m map[string]bool, bookID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m[bookID] {
		delete(m, bookID)
		return true
	}
	return false
}

// Ping checks if Redis is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (s *Store) Close() error {
	return s.client.Close()
}
