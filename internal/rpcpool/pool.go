// Package rpcpool selects the healthiest of several configured Sui RPC
// endpoints. Every poll_interval each endpoint is asked for its latest
// checkpoint sequence number; the endpoint reporting the highest number
// becomes "current". A failed poll never demotes the current client by
// itself -- only a competitor that strictly exceeds its sequence number
// does, mirroring the teacher's closest-bucket replacement discipline in
// networks/p2p/discover/table.go (a new candidate only displaces an
// existing entry when it is strictly better, never on the old entry merely
// going quiet).
package rpcpool

import (
	"context"
	"strings"
	"sync"
	"time"

	dexlog "github.com/suidex/dex-proxy/internal/log"
	"github.com/suidex/dex-proxy/internal/rpcclient"
)

var logger = dexlog.NewModuleLogger(dexlog.RPCPool)

// RedisMirror mirrors the current leader's name and checkpoint so a hot-standby process
// can read it without re-polling every endpoint itself. Implementations
// wrap go-redis/redis/v7; nil disables mirroring.
type RedisMirror interface {
	SetLeader(ctx context.Context, name string, checkpoint uint64) error
}

type endpointState struct {
	client     *rpcclient.Client
	checkpoint uint64
}

// Pool tracks N configured endpoints and exposes the current leader.
type Pool struct {
	mu         sync.RWMutex
	endpoints  []*endpointState
	currentIdx int

	pollInterval time.Duration
	mirror       RedisMirror

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New builds a pool from already-constructed clients. The first endpoint is
// the initial current client until the first poll completes.
func New(clients []*rpcclient.Client, pollInterval time.Duration, mirror RedisMirror) *Pool {
	endpoints := make([]*endpointState, len(clients))
	for i, c := range clients {
		endpoints[i] = &endpointState{client: c}
	}
	return &Pool{
		endpoints:    endpoints,
		pollInterval: pollInterval,
		mirror:       mirror,
		stopCh:       make(chan struct{}),
	}
}

// Start launches the background poller. Call Stop to terminate it.
func (p *Pool) Start() {
	p.wg.Add(1)
	go p.pollLoop()
}

func (p *Pool) Stop() {
	close(p.stopCh)
	p.wg.Wait()
}

func (p *Pool) pollLoop() {
	defer p.wg.Done()
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.pollOnce()
		}
	}
}

func (p *Pool) pollOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), p.pollInterval)
	defer cancel()

	type result struct {
		idx        int
		checkpoint uint64
		err        error
	}
	results := make([]result, len(p.endpoints))

	var wg sync.WaitGroup
	p.mu.RLock()
	snapshot := make([]*endpointState, len(p.endpoints))
	copy(snapshot, p.endpoints)
	p.mu.RUnlock()

	for i, ep := range snapshot {
		wg.Add(1)
		go func(i int, ep *endpointState) {
			defer wg.Done()
			seq, err := ep.client.LatestCheckpoint(ctx)
			results[i] = result{idx: i, checkpoint: seq, err: err}
		}(i, ep)
	}
	wg.Wait()

	p.mu.Lock()
	defer p.mu.Unlock()

	bestIdx := p.currentIdx
	bestSeq := p.endpoints[p.currentIdx].checkpoint
	for _, r := range results {
		if r.err != nil {
			logger.Warn("poll failed", "endpoint", p.endpoints[r.idx].client.Name, "err", r.err)
			continue
		}
		p.endpoints[r.idx].checkpoint = r.checkpoint
		switch {
		case r.checkpoint > bestSeq:
			bestIdx, bestSeq = r.idx, r.checkpoint
		case r.checkpoint == bestSeq && r.idx != bestIdx:
			// Stickiness rule: prefer an "internal_"-prefixed endpoint on
			// an exact tie.
			if strings.HasPrefix(p.endpoints[r.idx].client.Name, "internal_") &&
				!strings.HasPrefix(p.endpoints[bestIdx].client.Name, "internal_") {
				bestIdx = r.idx
			}
		}
	}

	if bestIdx != p.currentIdx {
		logger.Info("leader changed", "from", p.endpoints[p.currentIdx].client.Name, "to", p.endpoints[bestIdx].client.Name, "checkpoint", bestSeq)
	}
	p.currentIdx = bestIdx

	if p.mirror != nil {
		name := p.endpoints[p.currentIdx].client.Name
		if err := p.mirror.SetLeader(context.Background(), name, bestSeq); err != nil {
			logger.Warn("redis leader mirror failed", "err", err)
		}
	}
}

// Current returns the endpoint currently believed to be healthiest. Reads
// should always use this client; writes should prefer it but may use any
// client.
func (p *Pool) Current() *rpcclient.Client {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.endpoints[p.currentIdx].client
}

// Any returns an arbitrary client, for writes that do not need the leader.
func (p *Pool) Any(i int) *rpcclient.Client {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.endpoints[i%len(p.endpoints)].client
}

// Len reports the number of configured endpoints.
func (p *Pool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.endpoints)
}
