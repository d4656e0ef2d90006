package session

import (
	"github.com/rs/zerolog/log"

	"github.com/loreweaver/keeper/go/internal/channel"
	"github.com/loreweaver/keeper/go/internal/models"
)

// replacement drives the single-slot placeholder protocol (see
// replaceLoading).
type replacement struct {
	role     models.Role
	content  string
	keepBusy bool
	followUp string
	tokens   int
}

// replaceLoading is the core reconciliation primitive. With no placeholder
// pending it appends a fresh message (unsolicited server pushes). With one
// pending it mutates that exact message in place. A followUp chains a new
// placeholder so multi-step server processing stays a single-slot protocol,
// never an unbounded queue.
func (s *Store) replaceLoading(r replacement) {
	now := s.clock.Now()
	s.mustApply(func(st *State) {
		st.TokenUsage += r.tokens

		if st.PendingPlaceholderID == "" {
			st.Messages = append(st.Messages, models.Message{
				ID:        s.newID(),
				Role:      r.role,
				Content:   r.content,
				CreatedAt: now,
			})
		} else {
			replaced := false
			for i := range st.Messages {
				if st.Messages[i].ID == st.PendingPlaceholderID {
					st.Messages[i].Role = r.role
					st.Messages[i].Content = r.content
					replaced = true
					break
				}
			}
			if !replaced {
				// Pending id references a message that no longer exists;
				// recover by appending.
				st.Messages = append(st.Messages, models.Message{
					ID:        s.newID(),
					Role:      r.role,
					Content:   r.content,
					CreatedAt: now,
				})
			}
			if !r.keepBusy {
				st.Busy = false
				st.PendingPlaceholderID = ""
			}
		}

		if r.followUp != "" {
			next := models.Message{
				ID:        s.newID(),
				Role:      models.RoleSystem,
				Content:   r.followUp,
				CreatedAt: now,
			}
			st.Messages = append(st.Messages, next)
			st.PendingPlaceholderID = next.ID
			st.Busy = true
		}
	})
}

// handleEvent processes one inbound channel event. Events carry the epoch of
// the connection that produced them; anything from a previous connection is
// dropped so a torn-down channel cannot mutate reset state.
func (s *Store) handleEvent(epoch uint64, evt channel.Event) {
	s.mu.Lock()
	current := s.connEpoch
	s.mu.Unlock()
	if epoch != current {
		log.Debug().Uint64("epoch", epoch).Uint64("current", current).Msg("dropping event from stale connection")
		return
	}

	switch e := evt.(type) {
	case channel.Connected:
		s.mustApply(func(st *State) {
			st.Connected = true
		})
		if conn, sessionID := s.transport(); conn != nil && sessionID != "" {
			if err := conn.JoinSession(sessionID); err != nil {
				log.Warn().Err(err).Str("session_id", sessionID).Msg("failed to announce session membership")
			}
		}

	case channel.Disconnected:
		if e.Err != nil {
			log.Warn().Err(e.Err).Msg("channel disconnected")
		} else {
			log.Debug().Msg("channel closed")
		}
		s.mu.Lock()
		s.conn = nil
		s.mu.Unlock()
		s.mustApply(func(st *State) {
			st.Connected = false
		})

	case channel.SessionCreated:
		now := s.clock.Now()
		s.mustApply(func(st *State) {
			st.SessionID = e.SessionID
			st.Messages = []models.Message{{
				ID:        s.newID(),
				Role:      models.RoleModel,
				Content:   e.Message,
				CreatedAt: now,
			}}
			st.Busy = false
			st.PendingPlaceholderID = ""
			st.TokenUsage += e.TokenUsage
		})
		// The join could not happen before the server assigned the id, so
		// announce membership now.
		if conn, _ := s.transport(); conn != nil {
			if err := conn.JoinSession(e.SessionID); err != nil {
				log.Warn().Err(err).Str("session_id", e.SessionID).Msg("failed to join created session")
			}
		}

	case channel.MessageReceived:
		s.replaceLoading(replacement{
			role:    e.Role,
			content: e.Message,
			tokens:  e.TokenUsage,
		})

	case channel.SystemMessage:
		if e.IsError {
			log.Warn().Str("message", e.Message).Msg("server reported an error")
		}
		s.replaceLoading(replacement{
			role:     models.RoleSystem,
			content:  e.Message,
			keepBusy: e.KeepLoading,
			followUp: e.FollowingMessage,
		})

	case channel.BackgroundImageUpdated:
		s.mustApply(func(st *State) {
			st.BackgroundImageURL = e.ImageURL
		})

	case channel.CharacterReceived:
		character := e.Character
		s.mustApply(func(st *State) {
			st.Character = &character
			st.CharacterChanged = true
		})

	case channel.CharacterImageUpdated:
		var applied bool
		s.mustApply(func(st *State) {
			if st.Character != nil {
				st.Character.PortraitURL = e.ImageURL
				applied = true
			}
		})
		if !applied {
			log.Warn().Str("image_url", e.ImageURL).Msg("portrait update ignored: no character loaded")
		}

	case channel.MessageError:
		s.replaceLoading(replacement{
			role:    models.RoleSystem,
			content: e.Message,
		})

	case channel.SystemError:
		log.Error().Str("message", e.Message).Msg("channel system error")

	case channel.FormPrompt:
		form := e.Form
		if form.Mode == "" {
			form.Mode = models.FormModeInput
		}
		s.mustApply(func(st *State) {
			st.Form = &form
			st.FormSessionID = st.SessionID
			st.FormAvailable = true
			// Visibility stays view-controlled so an in-flight animation is
			// not interrupted.
		})
		s.persistForm()

	case channel.SummaryUpdated:
		summary := e.Summary
		s.mustApply(func(st *State) {
			st.Summary = &summary
			st.Form = &models.FormData{Mode: models.FormModeView}
			st.FormSessionID = st.SessionID
			st.FormAvailable = true
			st.FormVisible = true
		})
		// The summary supersedes any outstanding input form, including a
		// persisted one.
		s.persistForm()

	default:
		log.Debug().Msgf("unhandled channel event %T", evt)
	}
}
