package ws

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"time"

	"task_manager/internal/domain"
	"task_manager/internal/logger"

	redis "github.com/redis/go-redis/v9"
)

const (
	DefaultRelayChannel = "task_manager:task_events"
	relayQueueSize      = 256
	relayPublishTimeout = 2 * time.Second
)

// Relay fans task events out across instances through Redis pub/sub. Each
// instance publishes to the channel and delivers what it receives to its
// own hub, including its own events.
type Relay struct {
	client  *redis.Client
	hub     *Hub
	channel string
	queue   chan []byte

	// set once Run has stopped; events then go straight to the local hub
	failed atomic.Bool
}

func NewRelay(client *redis.Client, hub *Hub, channel string) *Relay {
	if channel == "" {
		channel = DefaultRelayChannel
	}
	return &Relay{
		client:  client,
		hub:     hub,
		channel: channel,
		queue:   make(chan []byte, relayQueueSize),
	}
}

// Publish queues ev for the relay without blocking. When the queue is full
// or the relay is no longer running the event is delivered to local clients
// only.
func (r *Relay) Publish(ev domain.TaskEvent) {
	msg, err := encode(ev.Type, ev.Payload)
	if err != nil {
		logger.Error("encode task event", "type", ev.Type, "error", err)
		return
	}
	EventsPublished.WithLabelValues(ev.Type).Inc()

	data, err := json.Marshal(relayMessage{UserIDs: ev.UserIDs, Message: msg})
	if err != nil {
		logger.Error("encode relay message", "error", err)
		return
	}

	if r.failed.Load() {
		r.hub.deliver(ev.UserIDs, msg)
		return
	}

	select {
	case r.queue <- data:
		// Run may have stopped between the check and the send
		if r.failed.Load() {
			r.drainLocal()
		}
	default:
		EventsDropped.WithLabelValues("relay_queue_full").Inc()
		r.hub.deliver(ev.UserIDs, msg)
	}
}

// Run subscribes to the channel and forwards queued events until ctx ends.
// Once it returns, queued and later events are delivered locally.
func (r *Relay) Run(ctx context.Context) error {
	err := r.run(ctx)
	if ctx.Err() == nil {
		logger.Warn("event relay stopped, delivering events locally", "error", err)
	}
	r.failed.Store(true)
	r.drainLocal()
	return err
}

func (r *Relay) run(ctx context.Context) error {
	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()

	// wait for the subscription to be confirmed so no early event is missed
	if _, err := sub.Receive(ctx); err != nil {
		return err
	}
	logger.Info("event relay subscribed", "channel", r.channel)

	loopCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go r.publishLoop(loopCtx)

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-ch:
			if !ok {
				return errors.New("relay subscription closed")
			}
			r.handle(m.Payload)
		}
	}
}

func (r *Relay) publishLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case data := <-r.queue:
			pctx, cancel := context.WithTimeout(ctx, relayPublishTimeout)
			err := r.client.Publish(pctx, r.channel, data).Err()
			cancel()
			if err != nil {
				EventsDropped.WithLabelValues("relay_error").Inc()
				logger.Warn("relay publish failed, delivering locally", "error", err)
				r.handle(string(data))
			}
		}
	}
}

// drainLocal delivers whatever is still queued to local clients.
func (r *Relay) drainLocal() {
	for {
		select {
		case data := <-r.queue:
			r.handle(string(data))
		default:
			return
		}
	}
}

func (r *Relay) handle(payload string) {
	var rm relayMessage
	if err := json.Unmarshal([]byte(payload), &rm); err != nil {
		logger.Warn("discarding malformed relay message", "error", err)
		return
	}
	r.hub.deliver(rm.UserIDs, rm.Message)
}
