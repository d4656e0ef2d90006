package game_api_client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/loreweaver/keeper/go/internal/models"
)

// GetSession fetches the full snapshot for one session.
func (c *GameApiClient) GetSession(ctx context.Context, sessionID string) (*models.SessionSnapshot, error) {
	body, err := c.Get(ctx, SessionsEndpoint+"/"+sessionID)
	if err != nil {
		return nil, fmt.Errorf("get session %s: %w", sessionID, err)
	}

	var snapshot models.SessionSnapshot
	if err := json.Unmarshal(body, &snapshot); err != nil {
		return nil, fmt.Errorf("unmarshal session snapshot: %w", err)
	}

	// Older backends omit the id from the snapshot body.
	if snapshot.SessionID == "" {
		snapshot.SessionID = sessionID
	}

	return &snapshot, nil
}

// ListSessions fetches the session list for the resume-game screen.
func (c *GameApiClient) ListSessions(ctx context.Context) ([]models.SessionInfo, error) {
	body, err := c.Get(ctx, SessionsEndpoint)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	var sessions []models.SessionInfo
	if err := json.Unmarshal(body, &sessions); err != nil {
		return nil, fmt.Errorf("unmarshal session list: %w", err)
	}

	return sessions, nil
}

// UpdateSession persists a partial session update (title and/or memo).
func (c *GameApiClient) UpdateSession(ctx context.Context, sessionID string, update models.SessionUpdate) error {
	payload, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("marshal session update: %w", err)
	}

	if _, err := c.Put(ctx, SessionsEndpoint+"/"+sessionID, bytes.NewReader(payload)); err != nil {
		return fmt.Errorf("update session %s: %w", sessionID, err)
	}

	return nil
}

// RollDice submits a one-shot dice roll outside the chat pipeline.
func (c *GameApiClient) RollDice(ctx context.Context, sessionID, dice string) (*models.DiceRoll, error) {
	payload, err := json.Marshal(map[string]string{
		"dice":      dice,
		"sessionId": sessionID,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal dice roll request: %w", err)
	}

	body, err := c.Post(ctx, DiceRollEndpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("roll dice: %w", err)
	}

	var result models.DiceRoll
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("unmarshal dice roll result: %w", err)
	}

	return &result, nil
}
