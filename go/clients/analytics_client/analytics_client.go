package analytics_client

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/loreweaver/keeper/go/clients"
)

const eventsEndpoint = "/events"

// AnalyticsClient is a fire-and-forget event sink. Delivery failures are
// logged and swallowed; callers never block on analytics.
type AnalyticsClient struct {
	*clients.BaseClient
}

func NewAnalyticsClient(baseURL string) *AnalyticsClient {
	client := &AnalyticsClient{
		BaseClient: clients.NewBaseClient(baseURL),
	}

	client.SetHeader("Content-Type", "application/json")
	client.SetTimeout(5 * time.Second)

	return client
}

// Track submits one event. Errors are logged at debug level because analytics
// failures must never surface to the user.
func (c *AnalyticsClient) Track(event string, props map[string]string) {
	payload, err := json.Marshal(map[string]interface{}{
		"event":      event,
		"properties": props,
		"timestamp":  time.Now().UTC(),
	})
	if err != nil {
		log.Debug().Err(err).Str("event", event).Msg("failed to marshal analytics event")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := c.Post(ctx, eventsEndpoint, bytes.NewReader(payload)); err != nil {
		log.Debug().Err(err).Str("event", event).Msg("failed to deliver analytics event")
	}
}
