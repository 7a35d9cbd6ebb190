// Package realtime fans booking change events out to in-process subscribers.
//
// Events arrive from the change topic (see Run) and are delivered to every
// subscription whose filter matches. Each subscription has its own goroutine
// and buffer, so handlers of one subscriber run one at a time and in arrival
// order. Dispatch never waits on a subscriber: when its buffer is full the
// queued events are dropped and the handler gets a single resync event
// (an update with an empty row) instead.
package realtime

import (
	"context"
	"sync"

	"github.com/Domenick1991/paraglide/internal/domain"
	"github.com/Domenick1991/paraglide/internal/kafka"
	kafkaGo "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const defaultBuffer = 64

// Filter restricts a subscription to one table and, optionally, one company.
// An empty CompanyID matches every company.
type Filter struct {
	Table     string
	CompanyID string
}

func (f Filter) Match(ev domain.ChangeEvent) bool {
	if f.Table != "" && f.Table != ev.Table {
		return false
	}
	return f.CompanyID == "" || f.CompanyID == ev.CompanyID()
}

type Handler func(ctx context.Context, ev domain.ChangeEvent)

type Broker struct {
	mu     sync.RWMutex
	subs   map[uint64]*Subscription
	nextID uint64
	buffer int
	logger *zap.Logger
}

type BrokerOption func(*Broker)

func WithBuffer(n int) BrokerOption {
	return func(b *Broker) {
		if n > 0 {
			b.buffer = n
		}
	}
}

func NewBroker(logger *zap.Logger, opts ...BrokerOption) *Broker {
	b := &Broker{
		subs:   make(map[uint64]*Subscription),
		buffer: defaultBuffer,
		logger: logger,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

type Subscription struct {
	id      uint64
	broker  *Broker
	filter  Filter
	handler Handler
	events  chan domain.ChangeEvent
	resync  chan struct{}
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	once    sync.Once
}

// Subscribe registers handler for events matching filter. The caller must
// call Unsubscribe when done; it must not do so from inside handler.
func (b *Broker) Subscribe(filter Filter, handler Handler) *Subscription {
	ctx, cancel := context.WithCancel(context.Background())
	b.mu.Lock()
	b.nextID++
	s := &Subscription{
		id:      b.nextID,
		broker:  b,
		filter:  filter,
		handler: handler,
		events:  make(chan domain.ChangeEvent, b.buffer),
		resync:  make(chan struct{}, 1),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	b.subs[s.id] = s
	b.mu.Unlock()

	go s.run()

	b.logger.Debug("realtime subscription opened",
		zap.Uint64("subscription", s.id),
		zap.String("table", filter.Table),
		zap.String("company_id", filter.CompanyID))
	return s
}

func (s *Subscription) run() {
	defer close(s.done)
	for {
		select {
		case <-s.ctx.Done():
			return
		case ev := <-s.events:
			s.handler(s.ctx, ev)
		case <-s.resync:
			s.drain()
			s.handler(s.ctx, s.resyncEvent())
		}
	}
}

func (s *Subscription) drain() {
	for {
		select {
		case <-s.events:
		default:
			return
		}
	}
}

// resyncEvent stands in for everything dropped on overflow. Handlers treat
// it like any update and reload.
func (s *Subscription) resyncEvent() domain.ChangeEvent {
	ev := domain.ChangeEvent{Kind: domain.ChangeUpdate, Table: s.filter.Table}
	if s.filter.CompanyID != "" {
		company := s.filter.CompanyID
		ev.Row.CompanyID = &company
	}
	return ev
}

func (s *Subscription) overflow() {
	select {
	case s.resync <- struct{}{}:
		s.broker.logger.Warn("realtime subscriber lagging, scheduling resync",
			zap.Uint64("subscription", s.id),
			zap.String("company_id", s.filter.CompanyID))
	default:
	}
}

// Unsubscribe stops delivery and waits for an in-flight handler to return.
// It is safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.broker.mu.Lock()
		delete(s.broker.subs, s.id)
		s.broker.mu.Unlock()

		s.cancel()
		<-s.done

		s.broker.logger.Debug("realtime subscription closed", zap.Uint64("subscription", s.id))
	})
}

func (b *Broker) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Dispatch queues ev on every matching subscription and returns how many
// accepted it. A subscriber whose buffer is full is scheduled for a resync.
func (b *Broker) Dispatch(ctx context.Context, ev domain.ChangeEvent) int {
	if ctx.Err() != nil {
		return 0
	}

	b.mu.RLock()
	targets := make([]*Subscription, 0, len(b.subs))
	for _, s := range b.subs {
		if s.filter.Match(ev) {
			targets = append(targets, s)
		}
	}
	b.mu.RUnlock()

	delivered := 0
	for _, s := range targets {
		if s.ctx.Err() != nil {
			continue
		}
		select {
		case s.events <- ev:
			delivered++
		default:
			s.overflow()
		}
	}
	return delivered
}

// Source is a stream of raw change messages.
type Source interface {
	Consume(ctx context.Context, handler func(context.Context, kafkaGo.Message) error) error
}

// Run feeds the broker from src until ctx is done. Undecodable messages are
// logged and skipped.
func (b *Broker) Run(ctx context.Context, src Source) error {
	return src.Consume(ctx, func(ctx context.Context, msg kafkaGo.Message) error {
		ev, err := kafka.DecodeChange(msg)
		if err != nil {
			b.logger.Warn("skipping change message", zap.Error(err), zap.Int64("offset", msg.Offset))
			return nil
		}
		b.Dispatch(ctx, ev)
		return nil
	})
}
