package messaging

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Event types published on the command event stream
const (
	EventCommandExecuted  = "command_executed"
	EventContextBound     = "context_bound"
	EventResolutionFailed = "resolution_failed"
)

// Consumer group names
const (
	ConsumerGroupGateway = "gateway"
	ConsumerGroupAudit   = "audit"
)

// Stream names
const (
	StreamCommandEvents = "plural:events:commands"
)

// EventMessage represents a command lifecycle event published via Redis Streams
type EventMessage struct {
	ID      string                 `json:"id"`
	Source  string                 `json:"source"`
	Type    string                 `json:"type"`
	Payload map[string]interface{} `json:"payload"`
	Created int64                  `json:"created"`
}

// NewEventMessage creates a new event message with generated ID and timestamp
func NewEventMessage(source, eventType string, payload map[string]interface{}) EventMessage {
	return EventMessage{
		ID:      generateMessageID(),
		Source:  source,
		Type:    eventType,
		Payload: payload,
		Created: time.Now().Unix(),
	}
}

// Marshal converts EventMessage to JSON bytes
func (m EventMessage) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

// ToRedisValues converts EventMessage to Redis stream values map
func (m EventMessage) ToRedisValues() map[string]interface{} {
	payloadJSON, _ := json.Marshal(m.Payload)

	return map[string]interface{}{
		"id":      m.ID,
		"source":  m.Source,
		"type":    m.Type,
		"payload": string(payloadJSON),
		"created": strconv.FormatInt(m.Created, 10),
	}
}

// EventMessageFromRedisValues creates EventMessage from Redis stream values
func EventMessageFromRedisValues(values map[string]interface{}) (*EventMessage, error) {
	msg := &EventMessage{}

	if v, ok := values["id"].(string); ok {
		msg.ID = v
	}
	if v, ok := values["source"].(string); ok {
		msg.Source = v
	}
	if v, ok := values["type"].(string); ok {
		msg.Type = v
	}

	if v, ok := values["payload"].(string); ok {
		var payload map[string]interface{}
		if err := json.Unmarshal([]byte(v), &payload); err != nil {
			return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
		}
		msg.Payload = payload
	}

	if v, ok := values["created"].(string); ok {
		created, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("failed to parse created: %w", err)
		}
		msg.Created = created
	}

	return msg, nil
}

var messageIDCounter uint64

func generateMessageID() string {
	messageIDCounter++
	return fmt.Sprintf("evt_%d_%d", time.Now().UnixNano(), messageIDCounter)
}
