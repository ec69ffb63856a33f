package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFeedMessage(t *testing.T) {
	msg := &IncomingMessage{
		Value: []byte(`{
			"tenant_id": "t1",
			"source_system": "sap",
			"request_id": "req-1",
			"record": {"tax_number": "EG123456", "company_name": "Hassan Trading"}
		}`),
	}

	require.NoError(t, msg.ParseFeedMessage())
	require.NotNil(t, msg.FeedMessage)
	assert.Equal(t, "t1", msg.FeedMessage.TenantID)
	assert.Equal(t, "sap", msg.FeedMessage.SourceSystem)
	assert.Equal(t, "req-1", msg.FeedMessage.RequestID)
	assert.Equal(t, "EG123456", msg.FeedMessage.Record.TaxNumber)
	assert.Equal(t, "Hassan Trading", msg.FeedMessage.Record.CompanyName)
}

func TestParseFeedMessage_InvalidJSON(t *testing.T) {
	msg := &IncomingMessage{Value: []byte("not json")}
	assert.Error(t, msg.ParseFeedMessage())
	assert.Nil(t, msg.FeedMessage)
}

func TestGetTenantID_FallsBackToHeader(t *testing.T) {
	msg := &IncomingMessage{
		Headers:     map[string]string{"tenant_id": "t-header"},
		FeedMessage: &FeedMessage{},
	}
	assert.Equal(t, "t-header", msg.GetTenantID())

	msg.FeedMessage.TenantID = "t-payload"
	assert.Equal(t, "t-payload", msg.GetTenantID())
}

func TestGetSourceSystem_FallsBackToHeader(t *testing.T) {
	msg := &IncomingMessage{
		Headers:     map[string]string{"source_system": "legacy"},
		FeedMessage: &FeedMessage{},
	}
	assert.Equal(t, "legacy", msg.GetSourceSystem())

	msg.FeedMessage.SourceSystem = "sap"
	assert.Equal(t, "sap", msg.GetSourceSystem())
}
