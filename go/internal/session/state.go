package session

import (
	"github.com/loreweaver/keeper/go/internal/models"
)

// SaveStatus tracks the memo save lifecycle for the side menu.
type SaveStatus string

const (
	SaveStatusIdle   SaveStatus = ""
	SaveStatusSaving SaveStatus = "saving"
	SaveStatusSaved  SaveStatus = "saved"
	SaveStatusFailed SaveStatus = "failed"
)

// Placeholder contents shown while the server is working.
const (
	processingContent = "processing..."
	creatingContent   = "preparing a new story..."
	loadingContent    = "loading your story..."
)

// State is everything the view layer reads. The store hands out deep copies;
// subscribers never share slices or maps with the live state.
type State struct {
	SessionID          string
	Title              string
	Memo               string
	MemoSaveStatus     SaveStatus
	BackgroundImageURL string

	Messages             []models.Message
	Busy                 bool
	PendingPlaceholderID string

	Character        *models.Character
	CharacterChanged bool
	TokenUsage       int

	Connected bool

	Form          *models.FormData
	FormSessionID string
	FormAvailable bool
	FormVisible   bool
	Summary       *models.Summary
}

func (s State) snapshot() State {
	out := s

	if s.Messages != nil {
		out.Messages = make([]models.Message, len(s.Messages))
		copy(out.Messages, s.Messages)
	}

	if s.Character != nil {
		c := *s.Character
		if s.Character.Attributes != nil {
			c.Attributes = make(map[string]int, len(s.Character.Attributes))
			for k, v := range s.Character.Attributes {
				c.Attributes[k] = v
			}
		}
		out.Character = &c
	}

	if s.Form != nil {
		out.Form = s.Form.DeepCopy()
	}

	if s.Summary != nil {
		sum := *s.Summary
		if s.Summary.GoldenFacts != nil {
			sum.GoldenFacts = append([]string(nil), s.Summary.GoldenFacts...)
		}
		if s.Summary.NPCDescriptions != nil {
			sum.NPCDescriptions = append([]models.NPCDescription(nil), s.Summary.NPCDescriptions...)
		}
		out.Summary = &sum
	}

	return out
}
