package channel

import (
	"encoding/json"
	"fmt"

	"github.com/loreweaver/keeper/go/internal/models"
)

// Event is the tagged sum of everything the server pushes over the channel.
// Connected and Disconnected are synthesized locally from the socket
// lifecycle; the rest are decoded from wire envelopes.
type Event interface{ isEvent() }

// Connected is delivered once, before any server event, when the socket is up.
type Connected struct{}

// Disconnected is delivered when the socket closes, locally or remotely.
type Disconnected struct {
	Err error
}

// SessionCreated confirms a game:create request and carries the opening
// narration.
type SessionCreated struct {
	SessionID  string
	Message    string
	TokenUsage int
}

// MessageReceived is an ordinary reply resolving the pending placeholder.
type MessageReceived struct {
	Role       models.Role
	Message    string
	TokenUsage int
}

// SystemMessage is a system-authored update, optionally chaining a follow-up
// placeholder for multi-step processing.
type SystemMessage struct {
	Message          string
	FollowingMessage string
	KeepLoading      bool
	IsError          bool
}

type BackgroundImageUpdated struct {
	ImageURL string
}

type CharacterReceived struct {
	Character models.Character
}

type CharacterImageUpdated struct {
	ImageURL string
}

// MessageError is a per-message failure surfaced in the timeline.
type MessageError struct {
	Message string
}

// SystemError is a transport-level failure that is logged, not shown.
type SystemError struct {
	Message string
}

type FormPrompt struct {
	Form models.FormData
}

type SummaryUpdated struct {
	Summary models.Summary
}

func (Connected) isEvent()              {}
func (Disconnected) isEvent()           {}
func (SessionCreated) isEvent()         {}
func (MessageReceived) isEvent()        {}
func (SystemMessage) isEvent()          {}
func (BackgroundImageUpdated) isEvent() {}
func (CharacterReceived) isEvent()      {}
func (CharacterImageUpdated) isEvent()  {}
func (MessageError) isEvent()           {}
func (SystemError) isEvent()            {}
func (FormPrompt) isEvent()             {}
func (SummaryUpdated) isEvent()         {}

// Wire event type names.
const (
	eventSessionCreated         = "session:created"
	eventMessageReceived        = "message:received"
	eventSystemMessage          = "system:message"
	eventBackgroundImageUpdated = "backgroundImage:updated"
	eventNewCharacterReceived   = "newCharacter:received"
	eventCharacterImageUpdated  = "characterImage:updated"
	eventMessageError           = "message:error"
	eventSystemError            = "system:error"
	eventFormPrompt             = "form:prompt"
	eventSummaryUpdated         = "summary:updated"
)

// envelope is the wire shape of every server push.
type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// decodeEvent parses a wire frame into its typed event. Unknown event types
// return (nil, nil) so newer servers do not break older clients.
func decodeEvent(data []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unmarshal event envelope: %w", err)
	}

	switch env.Type {
	case eventSessionCreated:
		var p struct {
			SessionID  string `json:"sessionId"`
			Message    string `json:"message"`
			TokenUsage int    `json:"tokenUsage"`
		}
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, fmt.Errorf("unmarshal %s payload: %w", env.Type, err)
		}
		return SessionCreated{SessionID: p.SessionID, Message: p.Message, TokenUsage: p.TokenUsage}, nil

	case eventMessageReceived:
		var p struct {
			Role       models.Role `json:"role"`
			Message    string      `json:"message"`
			TokenUsage int         `json:"tokenUsage"`
		}
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, fmt.Errorf("unmarshal %s payload: %w", env.Type, err)
		}
		return MessageReceived{Role: p.Role, Message: p.Message, TokenUsage: p.TokenUsage}, nil

	case eventSystemMessage:
		var p struct {
			Message          string `json:"message"`
			FollowingMessage string `json:"followingMessage"`
			KeepLoading      bool   `json:"keepLoading"`
			IsError          bool   `json:"isError"`
		}
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, fmt.Errorf("unmarshal %s payload: %w", env.Type, err)
		}
		return SystemMessage{
			Message:          p.Message,
			FollowingMessage: p.FollowingMessage,
			KeepLoading:      p.KeepLoading,
			IsError:          p.IsError,
		}, nil

	case eventBackgroundImageUpdated:
		var p struct {
			ImageURL string `json:"imageUrl"`
		}
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, fmt.Errorf("unmarshal %s payload: %w", env.Type, err)
		}
		return BackgroundImageUpdated{ImageURL: p.ImageURL}, nil

	case eventNewCharacterReceived:
		var p struct {
			NewCharacter models.Character `json:"newCharacter"`
		}
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, fmt.Errorf("unmarshal %s payload: %w", env.Type, err)
		}
		return CharacterReceived{Character: p.NewCharacter}, nil

	case eventCharacterImageUpdated:
		var p struct {
			ImageURL string `json:"imageUrl"`
		}
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, fmt.Errorf("unmarshal %s payload: %w", env.Type, err)
		}
		return CharacterImageUpdated{ImageURL: p.ImageURL}, nil

	case eventMessageError:
		var p struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, fmt.Errorf("unmarshal %s payload: %w", env.Type, err)
		}
		return MessageError{Message: p.Message}, nil

	case eventSystemError:
		var p struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, fmt.Errorf("unmarshal %s payload: %w", env.Type, err)
		}
		return SystemError{Message: p.Message}, nil

	case eventFormPrompt:
		var p struct {
			FormData models.FormData `json:"formData"`
		}
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, fmt.Errorf("unmarshal %s payload: %w", env.Type, err)
		}
		return FormPrompt{Form: p.FormData}, nil

	case eventSummaryUpdated:
		var p struct {
			NewSummary models.Summary `json:"newSummary"`
		}
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, fmt.Errorf("unmarshal %s payload: %w", env.Type, err)
		}
		return SummaryUpdated{Summary: p.NewSummary}, nil

	default:
		return nil, nil
	}
}
