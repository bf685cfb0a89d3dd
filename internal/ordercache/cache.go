// Package ordercache implements the bounded order cache and lifecycle
// state machine: client_order_id -> Order, mutated by the insert
// handler, the cancel handler and the async event subscriber, all under
// a single mutex-guarded map.
//
// Grounded on node/sc/bridge_tx_pool.go's mutex-guarded map-of-entries
// pool (see DESIGN.md), generalised from a transaction queue to the order
// lifecycle DAG this spec requires.
package ordercache

import (
	"errors"
	"sync"

	"github.com/rcrowley/go-metrics"

	dexlog "github.com/suidex/dex-proxy/internal/log"
)

var logger = dexlog.NewModuleLogger(dexlog.OrderCache)

var evictedCounter = metrics.NewRegisteredCounter("ordercache/evicted", nil)

// ErrCacheFull is returned by Add when the cache is at capacity and no
// Cancelled/Finalised entry is evictable.
var ErrCacheFull = errors.New("ordercache: cache full")

// ErrNotFound is returned by Get/mutation methods for an unknown
// client_order_id.
var ErrNotFound = errors.New("ordercache: order not found")

type entry struct {
	order *Order
	seq   uint64
}

// Cache is a bounded, thread-safe client_order_id -> Order map.
type Cache struct {
	mu           sync.RWMutex
	capacity     int
	entries      map[string]*entry
	byExchangeID map[string]string // exchange_order_id -> client_order_id
	seq          uint64
}

// New constructs a Cache with the given bounded capacity
// (dex.order_cache.capacity).
func New(capacity int) *Cache {
	return &Cache{
		capacity:     capacity,
		entries:      make(map[string]*entry),
		byExchangeID: make(map[string]string),
	}
}

// GetByExchangeOrderID resolves an exchange-assigned order id back to the
// tracked order, used by the event subscriber which only learns the
// exchange id.
func (c *Cache) GetByExchangeOrderID(exchangeOrderID string) (*Order, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.byExchangeID[exchangeOrderID]
	if !ok {
		return nil, false
	}
	e, ok := c.entries[id]
	if !ok {
		return nil, false
	}
	return e.order.clone(), true
}

// Add inserts a new order in PendingInsert status. If the cache is at
// capacity, the oldest Cancelled/Finalised entry is evicted first; if none
// is evictable, Add fails with ErrCacheFull.
func (c *Cache) Add(o *Order) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) >= c.capacity {
		if !c.evictOldestTerminalLocked() {
			return ErrCacheFull
		}
	}

	c.seq++
	c.entries[o.ClientOrderID] = &entry{order: o.clone(), seq: c.seq}
	return nil
}

func (c *Cache) evictOldestTerminalLocked() bool {
	var victim string
	var victimSeq uint64
	found := false
	for id, e := range c.entries {
		if !e.order.Status.terminal() {
			continue
		}
		if !found || e.seq < victimSeq {
			victim, victimSeq, found = id, e.seq, true
		}
	}
	if !found {
		return false
	}
	delete(c.entries, victim)
	evictedCounter.Inc(1)
	logger.Debug("evicted terminal order", "client_order_id", victim)
	return true
}

// Get returns a copy of the order tracked under id.
func (c *Cache) Get(id string) (*Order, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[id]
	if !ok {
		return nil, false
	}
	return e.order.clone(), true
}

// List returns a copy of every order currently tracked for a pool (poolID
// empty returns all pools).
func (c *Cache) List(poolID string) []*Order {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*Order, 0, len(c.entries))
	for _, e := range c.entries {
		if poolID == "" || e.order.PoolID == poolID {
			out = append(out, e.order.clone())
		}
	}
	return out
}

// Delete explicitly removes an order, called once it reaches a terminal
// Cancelled/Finalised state.
func (c *Cache) Delete(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[id]; ok && e.order.ExchangeOrderID != "" {
		delete(c.byExchangeID, e.order.ExchangeOrderID)
	}
	delete(c.entries, id)
}

// Len reports the number of tracked orders.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// mutate applies fn to the tracked order under id while holding the write
// lock, enforcing the canTransition monotonicity rule on any status field
// change. fn may freely mutate fields other than Status it owns
// authoritatively.
func (c *Cache) mutate(id string, fn func(o *Order)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[id]
	if !ok {
		return ErrNotFound
	}
	before := e.order.Status
	fn(e.order)
	if !before.canTransition(e.order.Status) {
		e.order.Status = before // reject the downgrade, keep other field writes
	}
	if e.order.ExchangeOrderID != "" {
		c.byExchangeID[e.order.ExchangeOrderID] = id
	}
	return nil
}
