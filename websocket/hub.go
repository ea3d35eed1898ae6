package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"safehorizon/models"
	"safehorizon/utils"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

const (
	// Per-subscription outbound buffer. On overflow the oldest event
	// is dropped and the subscription's dropped counter incremented.
	subscriptionQueueSize = 256

	// How long a remote publish id is remembered for echo suppression.
	publishDedupTTL = 30 * time.Second

	brokerChannelPrefix = "safehorizon."
)

// Patterns covering every reserved channel namespace. The broker
// bridge pattern-subscribes to these so any channel with a local
// handler receives remote publishes.
var brokerPatterns = []string{
	brokerChannelPrefix + "alerts.*",
	brokerChannelPrefix + "broadcasts.*",
	brokerChannelPrefix + "admin.*",
}

// Handler receives events for one subscription. Handlers run on the
// subscription's own drain goroutine in publish order; they must not
// block for long or later events back up in that subscription's queue
// and eventually drop.
type Handler func(event models.Event)

// Subscription is the token returned by Subscribe.
type Subscription struct {
	id      uint64
	channel string
	queue   chan models.Event
	done    chan struct{}
	once    sync.Once

	// Dropped counts events discarded due to queue overflow.
	Dropped atomic.Int64
}

// Channel returns the channel this subscription listens on.
func (s *Subscription) Channel() string {
	return s.channel
}

// Hub is the in-process pub/sub fabric with an optional Redis bridge
// for cross-instance delivery. Delivery is at-most-once: nothing is
// queued for absent subscribers.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[uint64]*Subscription

	nextID     atomic.Uint64
	instanceID string

	broker *redis.Client

	seenMu sync.Mutex
	seen   map[string]time.Time

	stats HubStats

	ctx    context.Context
	cancel context.CancelFunc
}

type HubStats struct {
	Published      atomic.Int64
	DeliveredLocal atomic.Int64
	RemoteReceived atomic.Int64
	EchoSuppressed atomic.Int64
}

// NewHub creates a hub. A nil broker degrades to local-only delivery.
func NewHub(broker *redis.Client) *Hub {
	ctx, cancel := context.WithCancel(context.Background())

	return &Hub{
		subs:       make(map[string]map[uint64]*Subscription),
		instanceID: utils.GenerateUUID(),
		broker:     broker,
		seen:       make(map[string]time.Time),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Run starts the broker bridge and the dedup sweeper. It returns when
// Shutdown is called.
func (h *Hub) Run() {
	logrus.Info("Hub starting")

	go h.sweepSeen()

	if h.broker != nil {
		h.runBrokerBridge()
		return
	}

	<-h.ctx.Done()
}

// Publish delivers an event to all current subscribers of the channel,
// locally and, when a broker is attached, on every other instance.
func (h *Hub) Publish(channel, eventType string, payload interface{}) {
	event := models.Event{
		Channel:   channel,
		EventType: eventType,
		Timestamp: time.Now(),
		PublishID: utils.GenerateUUID(),
		Origin:    h.instanceID,
		Payload:   payload,
	}

	h.stats.Published.Add(1)
	h.deliverLocal(event)

	if h.broker == nil {
		return
	}

	body, err := json.Marshal(event)
	if err != nil {
		logrus.Errorf("hub: failed to encode event for broker: %v", err)
		return
	}

	ctx, cancel := context.WithTimeout(h.ctx, 2*time.Second)
	defer cancel()

	if err := h.broker.Publish(ctx, brokerChannelPrefix+channel, body).Err(); err != nil {
		// Broker failure degrades to local-only delivery.
		logrus.Warnf("hub: broker publish failed, local delivery only: %v", err)
	}
}

// Subscribe registers a handler for a channel. Events are handed to
// the handler in publish order for this process.
func (h *Hub) Subscribe(channel string, handler Handler) *Subscription {
	sub := &Subscription{
		id:      h.nextID.Add(1),
		channel: channel,
		queue:   make(chan models.Event, subscriptionQueueSize),
		done:    make(chan struct{}),
	}

	h.mu.Lock()
	if h.subs[channel] == nil {
		h.subs[channel] = make(map[uint64]*Subscription)
	}
	h.subs[channel][sub.id] = sub
	h.mu.Unlock()

	go func() {
		for {
			select {
			case <-sub.done:
				return
			case event := <-sub.queue:
				select {
				case <-sub.done:
					return
				default:
				}
				handler(event)
			}
		}
	}()

	return sub
}

// Unsubscribe removes a subscription. It is idempotent; after return
// the handler is not invoked for new events.
func (h *Hub) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}

	h.mu.Lock()
	if channelSubs, ok := h.subs[sub.channel]; ok {
		delete(channelSubs, sub.id)
		if len(channelSubs) == 0 {
			delete(h.subs, sub.channel)
		}
	}
	h.mu.Unlock()

	sub.once.Do(func() {
		close(sub.done)
	})
}

// SubscriberCount reports the current subscriptions on a channel.
func (h *Hub) SubscriberCount(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[channel])
}

func (h *Hub) deliverLocal(event models.Event) {
	h.mu.RLock()
	channelSubs := h.subs[event.Channel]
	targets := make([]*Subscription, 0, len(channelSubs))
	for _, sub := range channelSubs {
		targets = append(targets, sub)
	}
	h.mu.RUnlock()

	for _, sub := range targets {
		h.enqueue(sub, event)
	}
}

// enqueue is non-blocking: a full queue sheds its oldest event so a
// stalled handler never blocks the publisher or other subscriptions.
func (h *Hub) enqueue(sub *Subscription, event models.Event) {
	select {
	case sub.queue <- event:
		h.stats.DeliveredLocal.Add(1)
		return
	default:
	}

	select {
	case <-sub.queue:
		sub.Dropped.Add(1)
	default:
	}

	select {
	case sub.queue <- event:
		h.stats.DeliveredLocal.Add(1)
	default:
		sub.Dropped.Add(1)
	}
}

func (h *Hub) runBrokerBridge() {
	for {
		select {
		case <-h.ctx.Done():
			return
		default:
		}

		pubsub := h.broker.PSubscribe(h.ctx, brokerPatterns...)
		h.consumeBroker(pubsub)
		pubsub.Close()

		select {
		case <-h.ctx.Done():
			return
		case <-time.After(time.Second):
			logrus.Warn("hub: broker subscription lost, reconnecting")
		}
	}
}

func (h *Hub) consumeBroker(pubsub *redis.PubSub) {
	ch := pubsub.Channel()
	for {
		select {
		case <-h.ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			h.handleBrokerMessage(msg)
		}
	}
}

func (h *Hub) handleBrokerMessage(msg *redis.Message) {
	var event models.Event
	if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
		logrus.Warnf("hub: dropping malformed broker message on %s: %v", msg.Channel, err)
		return
	}

	// Echo suppression: ignore our own publishes and any publish id
	// seen within the TTL.
	if event.Origin == h.instanceID {
		h.stats.EchoSuppressed.Add(1)
		return
	}
	if h.alreadySeen(event.PublishID) {
		h.stats.EchoSuppressed.Add(1)
		return
	}

	h.stats.RemoteReceived.Add(1)
	h.deliverLocal(event)
}

func (h *Hub) alreadySeen(publishID string) bool {
	if publishID == "" {
		return false
	}

	h.seenMu.Lock()
	defer h.seenMu.Unlock()

	if _, ok := h.seen[publishID]; ok {
		return true
	}
	h.seen[publishID] = time.Now()
	return false
}

func (h *Hub) sweepSeen() {
	ticker := time.NewTicker(publishDedupTTL)
	defer ticker.Stop()

	for {
		select {
		case <-h.ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-publishDedupTTL)
			h.seenMu.Lock()
			for id, at := range h.seen {
				if at.Before(cutoff) {
					delete(h.seen, id)
				}
			}
			h.seenMu.Unlock()
		}
	}
}

// Shutdown stops the bridge and closes every subscription.
func (h *Hub) Shutdown() {
	logrus.Info("Hub shutting down")
	h.cancel()

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, channelSubs := range h.subs {
		for _, sub := range channelSubs {
			sub.once.Do(func() {
				close(sub.done)
			})
		}
	}
	h.subs = make(map[string]map[uint64]*Subscription)
}
