package game_api_client

import (
	"github.com/loreweaver/keeper/go/clients"
)

// GameApiClient talks to the companion backend's REST surface: session
// snapshots, the session list, title/memo updates, and the legacy one-shot
// dice roll.
type GameApiClient struct {
	*clients.BaseClient
}

func NewGameApiClient(baseURL, token string) *GameApiClient {
	client := &GameApiClient{
		BaseClient: clients.NewBaseClient(baseURL),
	}

	client.SetHeader("Content-Type", "application/json")
	if token != "" {
		client.SetHeader(AuthorizationHeader, BearerPrefix+token)
	}

	return client
}
