package websocket

import (
	"encoding/json"
	"testing"
	"time"

	"safehorizon/models"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collectEvents(t *testing.T, ch <-chan models.Event, n int) []models.Event {
	t.Helper()

	events := make([]models.Event, 0, n)
	timeout := time.After(2 * time.Second)
	for len(events) < n {
		select {
		case event := <-ch:
			events = append(events, event)
		case <-timeout:
			t.Fatalf("timed out after %d/%d events", len(events), n)
		}
	}
	return events
}

func TestPublishReachesSubscriberInOrder(t *testing.T) {
	hub := NewHub(nil)
	defer hub.Shutdown()

	received := make(chan models.Event, 100)
	sub := hub.Subscribe("alerts.authority", func(event models.Event) {
		received <- event
	})
	defer hub.Unsubscribe(sub)

	for i := 0; i < 50; i++ {
		hub.Publish("alerts.authority", models.EventAlertCreated, map[string]int{"seq": i})
	}

	events := collectEvents(t, received, 50)
	for i, event := range events {
		payload := event.Payload.(map[string]int)
		assert.Equal(t, i, payload["seq"], "events must arrive in publish order")
		assert.Equal(t, "alerts.authority", event.Channel)
		assert.NotEmpty(t, event.PublishID)
	}
}

func TestChannelsAreIsolated(t *testing.T) {
	hub := NewHub(nil)
	defer hub.Shutdown()

	authority := make(chan models.Event, 10)
	tourist := make(chan models.Event, 10)

	subA := hub.Subscribe(models.ChannelAuthority, func(e models.Event) { authority <- e })
	subT := hub.Subscribe(models.TouristChannel("t1"), func(e models.Event) { tourist <- e })
	defer hub.Unsubscribe(subA)
	defer hub.Unsubscribe(subT)

	hub.Publish(models.TouristChannel("t1"), models.EventBroadcast, nil)

	collectEvents(t, tourist, 1)
	select {
	case <-authority:
		t.Fatal("authority channel must not see tourist events")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	hub := NewHub(nil)
	defer hub.Shutdown()

	received := make(chan models.Event, 10)
	sub := hub.Subscribe("admin.system", func(e models.Event) { received <- e })

	hub.Publish("admin.system", models.EventSystemNotice, nil)
	collectEvents(t, received, 1)

	hub.Unsubscribe(sub)
	// Idempotent.
	hub.Unsubscribe(sub)

	hub.Publish("admin.system", models.EventSystemNotice, nil)
	select {
	case <-received:
		t.Fatal("unsubscribed handler must not receive new events")
	case <-time.After(100 * time.Millisecond):
	}

	assert.Equal(t, 0, hub.SubscriberCount("admin.system"))
}

func TestSlowSubscriberDropsOldestNotPublisher(t *testing.T) {
	hub := NewHub(nil)
	defer hub.Shutdown()

	gate := make(chan struct{})
	received := make(chan models.Event, 1024)
	sub := hub.Subscribe("alerts.authority", func(e models.Event) {
		<-gate
		received <- e
	})
	defer hub.Unsubscribe(sub)

	total := subscriptionQueueSize + 50
	done := make(chan struct{})
	go func() {
		for i := 0; i < total; i++ {
			hub.Publish("alerts.authority", models.EventAlertCreated, map[string]int{"seq": i})
		}
		close(done)
	}()

	// The publisher never blocks on the stalled handler.
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publisher blocked on a stalled subscriber")
	}

	assert.Positive(t, sub.Dropped.Load(), "overflow must be counted")
	close(gate)

	// The newest event survives drop-oldest shedding.
	deadline := time.After(2 * time.Second)
	var last models.Event
	for {
		select {
		case event := <-received:
			last = event
		case <-deadline:
			t.Fatal("handler never drained")
		}
		if payload, ok := last.Payload.(map[string]int); ok && payload["seq"] == total-1 {
			return
		}
	}
}

func TestBrokerEchoSuppression(t *testing.T) {
	hub := NewHub(nil)
	defer hub.Shutdown()

	received := make(chan models.Event, 10)
	sub := hub.Subscribe("alerts.authority", func(e models.Event) { received <- e })
	defer hub.Unsubscribe(sub)

	remote := models.Event{
		Channel:   "alerts.authority",
		EventType: models.EventAlertCreated,
		Timestamp: time.Now(),
		PublishID: "pub-1",
		Origin:    "other-instance",
	}
	body, err := json.Marshal(remote)
	require.NoError(t, err)

	msg := &redis.Message{Channel: brokerChannelPrefix + "alerts.authority", Payload: string(body)}

	// First delivery dispatches.
	hub.handleBrokerMessage(msg)
	collectEvents(t, received, 1)

	// Redelivery of the same publish id within the TTL is suppressed.
	hub.handleBrokerMessage(msg)

	// A message originated by this instance is suppressed outright.
	echo := remote
	echo.PublishID = "pub-2"
	echo.Origin = hub.instanceID
	echoBody, err := json.Marshal(echo)
	require.NoError(t, err)
	hub.handleBrokerMessage(&redis.Message{Channel: msg.Channel, Payload: string(echoBody)})

	select {
	case <-received:
		t.Fatal("suppressed message was delivered")
	case <-time.After(100 * time.Millisecond):
	}

	assert.Equal(t, int64(2), hub.stats.EchoSuppressed.Load())
}

func TestMalformedBrokerMessageIsDropped(t *testing.T) {
	hub := NewHub(nil)
	defer hub.Shutdown()

	received := make(chan models.Event, 1)
	sub := hub.Subscribe("alerts.authority", func(e models.Event) { received <- e })
	defer hub.Unsubscribe(sub)

	hub.handleBrokerMessage(&redis.Message{
		Channel: brokerChannelPrefix + "alerts.authority",
		Payload: "{not json",
	})

	select {
	case <-received:
		t.Fatal("malformed message must not dispatch")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestConcurrentSubscribersEachReceive(t *testing.T) {
	hub := NewHub(nil)
	defer hub.Shutdown()

	const subscribers = 8
	channels := make([]chan models.Event, subscribers)
	subs := make([]*Subscription, subscribers)

	for i := 0; i < subscribers; i++ {
		ch := make(chan models.Event, 10)
		channels[i] = ch
		subs[i] = hub.Subscribe("alerts.authority", func(e models.Event) { ch <- e })
	}
	defer func() {
		for _, sub := range subs {
			hub.Unsubscribe(sub)
		}
	}()

	hub.Publish("alerts.authority", models.EventAlertCreated, "payload")

	for i := 0; i < subscribers; i++ {
		collectEvents(t, channels[i], 1)
	}
}
