package api

import (
	"errors"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

const idempotencyHeader = "Idempotency-Key"

var errIdempotencyKeyReused = errors.New("idempotency key already used for a different booking")

type idempotentBooking struct {
	fingerprint string
	booking     BookingResponse
}

// idempotencyCache remembers successful bookings by client key so a retried POST
// returns the original booking instead of failing with slot_unavailable.
type idempotencyCache struct {
	mu      sync.Mutex
	entries *lru.Cache[string, idempotentBooking]
}

func newIdempotencyCache(size int) (*idempotencyCache, error) {
	entries, err := lru.New[string, idempotentBooking](size)
	if err != nil {
		return nil, fmt.Errorf("create idempotency cache: %w", err)
	}
	return &idempotencyCache{entries: entries}, nil
}

// do runs book at most once per key. Failed attempts are not remembered.
func (c *idempotencyCache) do(key, fingerprint string, book func() (BookingResponse, error)) (BookingResponse, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if prev, ok := c.entries.Get(key); ok {
		if prev.fingerprint != fingerprint {
			return BookingResponse{}, false, errIdempotencyKeyReused
		}
		return prev.booking, true, nil
	}

	resp, err := book()
	if err != nil {
		return BookingResponse{}, false, err
	}
	c.entries.Add(key, idempotentBooking{fingerprint: fingerprint, booking: resp})
	return resp, false, nil
}
