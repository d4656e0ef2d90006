package game_api_client

const (
	// API Endpoints
	SessionsEndpoint = "/session"
	DiceRollEndpoint = "/dice-roll"

	// Headers
	AuthorizationHeader = "Authorization"
	BearerPrefix        = "Bearer "
)
