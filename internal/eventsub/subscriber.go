package eventsub

import (
	"context"
	"time"

	"github.com/suidex/dex-proxy/internal/chain"
	"github.com/suidex/dex-proxy/internal/eventbus"
	dexlog "github.com/suidex/dex-proxy/internal/log"
	"github.com/suidex/dex-proxy/internal/ordercache"
	"github.com/suidex/dex-proxy/internal/sui"
)

var logger = dexlog.NewModuleLogger(dexlog.EventSub)

const reconnectPause = 5 * time.Second

// Notifier pushes a routed DomainEvent onward to the websocket hub as a
// JSON-RPC 2.0 notification. Defined here rather than in internal/httpapi
// to avoid an import cycle.
type Notifier interface {
	Notify(channel Channel, etype EventType, data interface{})
}

// Subscriber maintains two parallel event subscriptions: one filtered on
// Sender = our wallet, one filtered on the maker MoveEventField matching
// our account-cap/balance-manager identity.
type Subscriber struct {
	chain   chain.Client
	cache   *ordercache.Cache
	notify  Notifier
	bus     eventbus.Broker // optional, nil disables Kafka mirroring
	version sui.ExchangeVersion

	senderFilter chain.EventFilter
	makerFilter  chain.EventFilter

	pollInterval time.Duration

	stopCh chan struct{}
}

// New constructs a Subscriber. ourWallet feeds the sender filter; ourCapID
// feeds the maker/taker filter and is also the identity the classifier's
// liquidity check compares against.
func New(c chain.Client, cache *ordercache.Cache, notify Notifier, bus eventbus.Broker, version sui.ExchangeVersion, ourWallet, ourCapID string, pollInterval time.Duration) *Subscriber {
	return &Subscriber{
		chain:   c,
		cache:   cache,
		notify:  notify,
		bus:     bus,
		version: version,
		senderFilter: chain.EventFilter{
			Sender: ourWallet,
		},
		makerFilter: chain.EventFilter{
			MakerAddress:    ourCapID,
			MakerBalanceMgr: ourCapID,
			TakerBalanceMgr: ourCapID,
		},
		pollInterval: pollInterval,
		stopCh:       make(chan struct{}),
	}
}

// Run drives both subscriptions until Stop is called. Each runs its own
// cursor and reconnect loop, mirroring
// datasync/chaindatafetcher/chaindata_fetcher.go's subscribe-and-dispatch
// pattern, generalised to poll-based event queries since the chain seam
// (internal/chain) only exposes QueryEvents, not a push subscription.
func (s *Subscriber) Run() {
	go s.loop(s.senderFilter)
	go s.loop(s.makerFilter)
}

func (s *Subscriber) Stop() {
	close(s.stopCh)
}

func (s *Subscriber) loop(filter chain.EventFilter) {
	cursor := ""
	for {
		select {
		case <-s.stopCh:
			return
		default:
		}

		ctx, cancel := context.WithTimeout(context.Background(), s.pollInterval)
		events, next, err := s.chain.QueryEvents(ctx, filter, cursor)
		cancel()
		if err != nil {
			logger.Warn("event subscription failed, reconnecting", "err", err)
			time.Sleep(reconnectPause)
			continue
		}
		cursor = next

		for _, raw := range events {
			s.dispatch(raw)
		}

		select {
		case <-s.stopCh:
			return
		case <-time.After(s.pollInterval):
		}
	}
}

func (s *Subscriber) dispatch(raw chain.RawEvent) {
	ourIdentity := s.makerFilter.MakerBalanceMgr
	for _, ev := range Classify(raw, s.version, ourIdentity) {
		s.route(ev)
	}
}

func (s *Subscriber) route(ev DomainEvent) {
	switch ev.Type {
	case TypeOrderPlaced:
		d := ev.Data.(OrderPlacedData)
		if order, ok := s.cache.GetByExchangeOrderID(d.ExchangeOrderID); ok {
			_ = s.cache.ApplyOrderPlacedEvent(order.ClientOrderID, d.ExchangeOrderID, d.Remaining, d.Executed)
		}
	case TypeOrderCancelled:
		d := ev.Data.(OrderCancelledData)
		if order, ok := s.cache.GetByExchangeOrderID(d.ExchangeOrderID); ok {
			_ = s.cache.ApplyOrderCancelledEvent(order.ClientOrderID)
			s.cache.Delete(order.ClientOrderID)
		}
	case TypeOrderFilled:
		d := ev.Data.(OrderFilledData)
		if order, ok := s.cache.GetByExchangeOrderID(d.ExchangeOrderID); ok {
			fullyFilled := d.Remaining == 0
			_ = s.cache.ApplyOrderFilledEvent(order.ClientOrderID, d.Remaining, d.Executed, fullyFilled)
		}
	}

	if s.notify != nil {
		s.notify.Notify(ev.Channel, ev.Type, ev.Data)
	}
	if s.bus != nil {
		if err := s.bus.Publish(string(ev.Channel), ev.Data); err != nil {
			logger.Warn("event bus mirror publish failed", "err", err)
		}
	}
}
