package websocket

import (
	"encoding/json"
	"time"

	"safehorizon/models"
)

// Literal liveness frames exchanged with clients. These are plain text
// frames, not protocol-level pings.
const (
	framePing = "ping"
	framePong = "pong"
)

// EncodeFrame renders a hub event as the wire frame: one JSON object
// carrying event_type, timestamp, and the payload's fields inlined at
// the top level.
func EncodeFrame(event models.Event) ([]byte, error) {
	frame := map[string]interface{}{
		"event_type": event.EventType,
		"timestamp":  event.Timestamp.Format(time.RFC3339Nano),
	}

	if event.Payload != nil {
		raw, err := json.Marshal(event.Payload)
		if err != nil {
			return nil, err
		}

		var fields map[string]interface{}
		if err := json.Unmarshal(raw, &fields); err == nil {
			for k, v := range fields {
				if _, reserved := frame[k]; !reserved {
					frame[k] = v
				}
			}
		} else {
			frame["payload"] = event.Payload
		}
	}

	return json.Marshal(frame)
}

// AlertFrame builds the alert_created frame used both for live
// delivery and for `since` replay.
func AlertFrame(alert *models.Alert, at time.Time) ([]byte, error) {
	return EncodeFrame(models.Event{
		EventType: models.EventAlertCreated,
		Timestamp: at,
		Payload:   models.AlertEvent{Alert: alert},
	})
}
