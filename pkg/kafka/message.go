package kafka

import (
	"encoding/json"
	"time"

	"github.com/ahamdihussein-star/HSA-MDM-sub002/pkg/models"
)

// IncomingMessage wraps a raw Kafka message with parsed headers
type IncomingMessage struct {
	Key       string
	Value     []byte
	Headers   map[string]string
	Partition int
	Offset    int64
	Timestamp time.Time
	Topic     string

	// Trace context (extracted from Kafka headers)
	TraceParent string
	TraceState  string

	// Parsed content
	FeedMessage *FeedMessage
}

// FeedMessage is one company record delivered by an upstream source system.
type FeedMessage struct {
	TenantID     string                     `json:"tenant_id"`
	SourceSystem string                     `json:"source_system"`
	RequestID    string                     `json:"request_id"`
	DeliveredAt  time.Time                  `json:"delivered_at"`
	Record       models.CreateRecordRequest `json:"record"`
}

// ParseFeedMessage parses the message value as an upstream feed message
func (m *IncomingMessage) ParseFeedMessage() error {
	var msg FeedMessage
	if err := json.Unmarshal(m.Value, &msg); err != nil {
		return err
	}
	m.FeedMessage = &msg
	return nil
}

// GetTenantID returns the tenant ID from the feed message, falling back to
// the Kafka header when the payload omits it.
func (m *IncomingMessage) GetTenantID() string {
	if m.FeedMessage != nil && m.FeedMessage.TenantID != "" {
		return m.FeedMessage.TenantID
	}
	return m.Headers["tenant_id"]
}

// GetSourceSystem returns the source system from the feed message, falling
// back to the Kafka header.
func (m *IncomingMessage) GetSourceSystem() string {
	if m.FeedMessage != nil && m.FeedMessage.SourceSystem != "" {
		return m.FeedMessage.SourceSystem
	}
	return m.Headers["source_system"]
}
