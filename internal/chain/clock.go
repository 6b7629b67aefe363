// Package chain supplies the logical time (block height) that portfolio bookkeeping is stamped with.
package chain

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Clock reports the current logical block height. Heights never decrease.
type Clock interface {
	Height(ctx context.Context) (uint64, error)
}

// Advancer is a Clock whose height can be moved forward by an operator.
type Advancer interface {
	Clock
	Advance(ctx context.Context, blocks uint64) (uint64, error)
}

// DefaultHeightKey is the Redis key holding the block height.
const DefaultHeightKey = "chain:block_height"

var (
	ErrZeroAdvance = errors.New("blocks must be greater than zero")
	// ErrAdvanceTooLarge is returned when the new height would not fit the clock's counter.
	ErrAdvanceTooLarge = errors.New("blocks would overflow the block height")
)

// RedisClock keeps the block height in a Redis counter so every API replica agrees on it.
type RedisClock struct {
	Rdb *redis.Client
	Key string
}

func NewRedisClock(rdb *redis.Client) *RedisClock {
	return &RedisClock{Rdb: rdb, Key: DefaultHeightKey}
}

func (c *RedisClock) Height(ctx context.Context) (uint64, error) {
	s, err := c.Rdb.Get(ctx, c.Key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read block height: %w", err)
	}
	h, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse block height %q: %w", s, err)
	}
	return h, nil
}

func (c *RedisClock) Advance(ctx context.Context, blocks uint64) (uint64, error) {
	if blocks == 0 {
		return 0, ErrZeroAdvance
	}
	// INCRBY works on signed 64-bit integers
	if blocks > math.MaxInt64 {
		return 0, ErrAdvanceTooLarge
	}
	h, err := c.Rdb.IncrBy(ctx, c.Key, int64(blocks)).Result()
	if err != nil {
		if strings.Contains(err.Error(), "overflow") {
			return 0, ErrAdvanceTooLarge
		}
		return 0, fmt.Errorf("advance block height: %w", err)
	}
	return uint64(h), nil
}

// IntervalClock derives the height from wall-clock time elapsed since Genesis, one block per Interval.
type IntervalClock struct {
	Genesis  time.Time
	Interval time.Duration
	Now      func() time.Time
}

// DefaultBlockInterval approximates one block every ten minutes.
const DefaultBlockInterval = 10 * time.Minute

func (c *IntervalClock) Height(ctx context.Context) (uint64, error) {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	interval := c.Interval
	if interval <= 0 {
		interval = DefaultBlockInterval
	}
	elapsed := now().Sub(c.Genesis)
	if elapsed < 0 {
		return 0, nil
	}
	return uint64(elapsed / interval), nil
}

// ManualClock is an in-process clock moved by hand; used by tests and local tooling.
type ManualClock struct {
	mu     sync.Mutex
	height uint64
}

func NewManualClock(height uint64) *ManualClock {
	return &ManualClock{height: height}
}

func (c *ManualClock) Height(ctx context.Context) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.height, nil
}

func (c *ManualClock) Advance(ctx context.Context, blocks uint64) (uint64, error) {
	if blocks == 0 {
		return 0, ErrZeroAdvance
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if blocks > math.MaxUint64-c.height {
		return c.height, ErrAdvanceTooLarge
	}
	c.height += blocks
	return c.height, nil
}

// Set moves the clock to h. Heights lower than the current one are ignored.
func (c *ManualClock) Set(h uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if h > c.height {
		c.height = h
	}
}
