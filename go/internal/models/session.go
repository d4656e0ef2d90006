package models

import "time"

// SessionInfo is one entry in the session list used by the resume-game flow.
type SessionInfo struct {
	SessionID string    `json:"sessionId"`
	Title     string    `json:"title"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

// SessionSnapshot is the full session state fetched over REST when a game is
// resumed.
type SessionSnapshot struct {
	SessionID          string     `json:"sessionId"`
	Title              string     `json:"title"`
	Messages           []Message  `json:"messages"`
	Character          *Character `json:"character,omitempty"`
	Memo               string     `json:"memo"`
	BackgroundImageURL string     `json:"backgroundImageUrl"`
}

// SessionUpdate is a partial update persisted via PUT /session/{id}. Nil
// fields are left untouched by the server.
type SessionUpdate struct {
	Title *string `json:"title,omitempty"`
	Memo  *string `json:"memo,omitempty"`
}

// DiceRoll is the result of the legacy one-shot dice roll endpoint.
type DiceRoll struct {
	Dice   string `json:"dice"`
	Rolls  []int  `json:"rolls"`
	Total  int    `json:"total"`
	Detail string `json:"detail,omitempty"`
}
