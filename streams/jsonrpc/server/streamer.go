package server

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/defistate/tokenswap-go/differ"
	"github.com/defistate/tokenswap-go/engine"
	"github.com/defistate/tokenswap-go/protocols/erc20"
	"github.com/defistate/tokenswap-go/protocols/reservepool"
	"github.com/defistate/tokenswap-go/streams/jsonrpc"
	"github.com/ethereum/go-ethereum/rpc"
)

type subscriber struct {
	events chan *jsonrpc.SubscriptionEvent
	// resync is set when a diff could not be delivered; the next event is a full state.
	resync bool
}

// Streamer turns pool commits into a stream of full and diff events.
// Every subscriber first receives the latest full state, then one diff per observed change.
type Streamer struct {
	chainID    uint64
	pool       *reservepool.Pool
	tokens     []erc20.Token
	differ     *differ.StateDiffer
	bufferSize uint
	metrics    *Metrics
	logger     Logger

	mu          sync.Mutex
	last        *engine.State
	subscribers map[rpc.ID]*subscriber
}

func NewStreamer(
	chainID uint64,
	pool *reservepool.Pool,
	tokens []erc20.Token,
	stateDiffer *differ.StateDiffer,
	bufferSize uint,
	metrics *Metrics,
	logger Logger,
) *Streamer {
	s := &Streamer{
		chainID:     chainID,
		pool:        pool,
		tokens:      tokens,
		differ:      stateDiffer,
		bufferSize:  bufferSize,
		metrics:     metrics,
		logger:      logger,
		subscribers: make(map[rpc.ID]*subscriber),
	}
	s.last = s.snapshot()
	return s
}

// Latest returns the most recently streamed state.
func (s *Streamer) Latest() *engine.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// Run publishes an event for every pool commit until ctx is canceled.
func (s *Streamer) Run(ctx context.Context) {
	watch, cancel := s.pool.Watch()
	defer cancel()

	s.logger.Info("State streamer started", "pool", s.pool.Address(), "sequence", s.Latest().Sequence())
	s.publish()

	for {
		select {
		case <-ctx.Done():
			s.closeAll()
			s.logger.Info("State streamer stopped")
			return
		case <-watch:
			s.publish()
		}
	}
}

func (s *Streamer) snapshot() *engine.State {
	return &engine.State{
		ChainID:   s.chainID,
		Timestamp: uint64(time.Now().UnixNano()),
		Tokens:    s.tokens,
		Pool:      s.pool.View(),
	}
}

// publish diffs the pool's current view against the last streamed state and fans it out.
func (s *Streamer) publish() {
	next := s.snapshot()

	s.mu.Lock()
	defer s.mu.Unlock()

	if next.Sequence() == s.last.Sequence() {
		return
	}

	var diffEvent *jsonrpc.SubscriptionEvent
	diff, err := s.differ.Diff(s.last, next)
	if err == nil {
		diffEvent, err = newEvent(jsonrpc.EventTypeDiff, diff)
	}
	if err != nil {
		s.logger.Error("Failed to build diff event; resyncing all subscribers", "error", err)
		for _, sub := range s.subscribers {
			sub.resync = true
		}
	}
	s.last = next

	var fullEvent *jsonrpc.SubscriptionEvent
	for id, sub := range s.subscribers {
		event := diffEvent
		if sub.resync || event == nil {
			if fullEvent == nil {
				if fullEvent, err = newEvent(jsonrpc.EventTypeFull, next); err != nil {
					s.logger.Error("Failed to build full event", "error", err)
					return
				}
			}
			event = fullEvent
		}

		select {
		case sub.events <- event:
			sub.resync = false
		default:
			if !sub.resync {
				s.logger.Warn("Subscriber is lagging; it will receive a full state next", "subscription", id)
				s.metrics.resyncs.Inc()
			}
			sub.resync = true
		}
	}
}

// subscribe registers a subscriber and queues the latest full state for it.
func (s *Streamer) subscribe(id rpc.ID) (<-chan *jsonrpc.SubscriptionEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	full, err := newEvent(jsonrpc.EventTypeFull, s.last)
	if err != nil {
		return nil, err
	}
	sub := &subscriber{events: make(chan *jsonrpc.SubscriptionEvent, s.bufferSize)}
	sub.events <- full
	s.subscribers[id] = sub
	s.metrics.subscribers.Inc()
	return sub.events, nil
}

func (s *Streamer) unsubscribe(id rpc.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sub, ok := s.subscribers[id]; ok {
		close(sub.events)
		delete(s.subscribers, id)
		s.metrics.subscribers.Dec()
	}
}

func (s *Streamer) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, sub := range s.subscribers {
		close(sub.events)
		delete(s.subscribers, id)
	}
	s.metrics.subscribers.Set(0)
}

// serve forwards events to one rpc subscription until either side goes away.
func (s *Streamer) serve(notifier *rpc.Notifier, sub *rpc.Subscription) {
	events, err := s.subscribe(sub.ID)
	if err != nil {
		s.logger.Error("Failed to start subscription", "subscription", sub.ID, "error", err)
		return
	}
	defer s.unsubscribe(sub.ID)
	s.logger.Debug("Subscriber connected", "subscription", sub.ID)

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := notifier.Notify(sub.ID, event); err != nil {
				s.logger.Warn("Failed to notify subscriber", "subscription", sub.ID, "error", err)
				return
			}
			s.metrics.events.WithLabelValues(event.Type).Inc()
		case err := <-sub.Err():
			s.logger.Debug("Subscriber disconnected", "subscription", sub.ID, "error", err)
			return
		}
	}
}

func newEvent(eventType string, payload any) (*jsonrpc.SubscriptionEvent, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s event: %w", eventType, err)
	}
	return &jsonrpc.SubscriptionEvent{
		Type:    eventType,
		Payload: raw,
		SentAt:  time.Now().UnixNano(),
	}, nil
}
