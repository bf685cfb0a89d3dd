// Package accountpool implements the account-cap / balance-manager pool:
// a set of authority objects that authorise order placement and
// cancellation for the shared wallet. Unlike gas coins these are
// by-reference inputs, not owned objects mutated by a transaction, so no
// version tracking is required.
//
// Grounded on the same node/sc/bridge_tx_pool.go pool discipline as
// internal/gaspool, simplified to drop the version state machine (see
// DESIGN.md).
package accountpool

import (
	"errors"
	"sync"

	"github.com/rcrowley/go-metrics"

	dexlog "github.com/suidex/dex-proxy/internal/log"
)

var logger = dexlog.NewModuleLogger(dexlog.AccountPool)

var exhaustedCounter = metrics.NewRegisteredCounter("accountpool/exhausted", nil)

// Status is the account-cap state machine: simpler than a gas coin's
// because there is no version to track.
type Status int

const (
	Free Status = iota
	InUse
	SkipForRemainderOfEpoch
)

// ErrExhausted is returned by Acquire when no account cap is Free.
var ErrExhausted = errors.New("accountpool: no free account cap")

type entry struct {
	id     string
	status Status
}

// Handle references one pooled account cap by index.
type Handle struct{ idx int }

// Pool is the set of child account caps available to authorise orders.
type Pool struct {
	mu       sync.Mutex
	entries  []*entry
	rrCursor int
}

// New constructs a Pool from a list of account-cap object ids
// (dex.account_cap_ids.children, or resolved balance-manager child ids).
func New(ids []string) *Pool {
	entries := make([]*entry, len(ids))
	for i, id := range ids {
		entries[i] = &entry{id: id, status: Free}
	}
	return &Pool{entries: entries}
}

// Acquire returns one Free account cap, round-robin, flipping it InUse.
// Non-blocking: returns ErrExhausted if none is Free.
func (p *Pool) Acquire() (Handle, string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := len(p.entries)
	for i := 0; i < n; i++ {
		idx := (p.rrCursor + i) % n
		if p.entries[idx].status == Free {
			p.entries[idx].status = InUse
			p.rrCursor = (idx + 1) % n
			return Handle{idx: idx}, p.entries[idx].id, nil
		}
	}
	exhaustedCounter.Inc(1)
	return Handle{}, "", ErrExhausted
}

// Release returns an account cap to Free, or parks it in
// SkipForRemainderOfEpoch when the paired transaction timed out before
// reaching finality: the account cap used alongside a poisoned gas coin
// is poisoned too.
func (p *Pool) Release(h Handle, timedOut bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if timedOut {
		p.entries[h.idx].status = SkipForRemainderOfEpoch
		logger.Warn("account cap poisoned by finality timeout", "id", p.entries[h.idx].id)
		return
	}
	p.entries[h.idx].status = Free
}

// OnEpochChange releases every account cap parked in
// SkipForRemainderOfEpoch back to Free. Account caps carry no version, so
// unlike gas coins there is nothing to re-read.
func (p *Pool) OnEpochChange() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, e := range p.entries {
		if e.status == SkipForRemainderOfEpoch {
			e.status = Free
		}
	}
}

// Len reports the number of tracked account caps.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}
