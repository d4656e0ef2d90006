package session

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/loreweaver/keeper/go/internal/models"
)

// SendMessage appends the user's message and a single "thinking" placeholder
// in one transition, then emits the message on the channel. The placeholder
// is resolved later by inbound reconciliation events.
func (s *Store) SendMessage(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return fmt.Errorf("send message: %w", ErrInvalidArgument)
	}

	if err := s.Connect(ctx); err != nil {
		return err
	}

	placeholderID := s.newID()
	now := s.clock.Now()
	s.mustApply(func(st *State) {
		st.Messages = append(st.Messages,
			models.Message{ID: s.newID(), Role: models.RoleUser, Content: text, CreatedAt: now},
			models.Message{ID: placeholderID, Role: models.RoleSystem, Content: processingContent, CreatedAt: now},
		)
		st.PendingPlaceholderID = placeholderID
		st.Busy = true
	})

	conn, sessionID := s.transport()
	if conn == nil {
		s.replaceLoading(replacement{role: models.RoleSystem, content: "failed to send message: channel is not connected"})
		return fmt.Errorf("send message: channel is not connected")
	}
	if err := conn.SendMessage(sessionID, text); err != nil {
		s.replaceLoading(replacement{role: models.RoleSystem, content: fmt.Sprintf("failed to send message: %v", err)})
		return fmt.Errorf("send message: %w", err)
	}

	if s.analytics != nil {
		go s.analytics.Track("message_sent", map[string]string{"session_id": sessionID})
	}

	return nil
}

// CreateSession asks the server to allocate a new game. The session id, the
// opening narration, and the membership announcement all arrive via the
// session:created event.
func (s *Store) CreateSession(ctx context.Context) error {
	if err := s.Connect(ctx); err != nil {
		return err
	}

	placeholderID := s.newID()
	now := s.clock.Now()
	s.mustApply(func(st *State) {
		st.Messages = append(st.Messages,
			models.Message{ID: placeholderID, Role: models.RoleSystem, Content: creatingContent, CreatedAt: now})
		st.PendingPlaceholderID = placeholderID
		st.Busy = true
	})

	conn, _ := s.transport()
	if conn == nil {
		s.replaceLoading(replacement{role: models.RoleSystem, content: "failed to create a new story: channel is not connected"})
		return fmt.Errorf("create session: channel is not connected")
	}
	if err := conn.CreateSession(); err != nil {
		s.replaceLoading(replacement{role: models.RoleSystem, content: fmt.Sprintf("failed to create a new story: %v", err)})
		return fmt.Errorf("create session: %w", err)
	}

	if s.analytics != nil {
		go s.analytics.Track("session_created", nil)
	}

	return nil
}

// LoadSession fetches a session snapshot and replaces the local mirror with
// it. A snapshot arriving after the store moved on (session switched, store
// reset) is discarded rather than applied.
func (s *Store) LoadSession(ctx context.Context, sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return fmt.Errorf("load session: %w", ErrInvalidArgument)
	}

	placeholderID := s.newID()
	now := s.clock.Now()
	var gen uint64
	s.mustApply(func(st *State) {
		s.loadGen++
		gen = s.loadGen
		st.Messages = append(st.Messages,
			models.Message{ID: placeholderID, Role: models.RoleSystem, Content: loadingContent, CreatedAt: now})
		st.PendingPlaceholderID = placeholderID
		st.Busy = true
	})

	// The snapshot is useful even when the realtime channel is down, so a
	// connect failure does not abort the load.
	if err := s.Connect(ctx); err != nil {
		log.Warn().Err(err).Str("session_id", sessionID).Msg("loading session without realtime channel")
	}

	snapshot, err := s.api.GetSession(ctx, sessionID)

	s.mu.Lock()
	stale := gen != s.loadGen
	s.mu.Unlock()
	if stale {
		log.Warn().Str("session_id", sessionID).Msg("discarding stale session response")
		return nil
	}

	if err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Msg("failed to fetch session")
		s.replaceLoading(replacement{
			role:    models.RoleSystem,
			content: fmt.Sprintf("failed to load session %s: %v", sessionID, err),
		})
		return fmt.Errorf("load session %s: %w", sessionID, err)
	}

	var dropForeignForm bool
	s.mustApply(func(st *State) {
		if gen != s.loadGen {
			stale = true
			return
		}
		st.SessionID = snapshot.SessionID
		st.Title = snapshot.Title
		st.Messages = snapshot.Messages
		st.Character = snapshot.Character
		st.Memo = snapshot.Memo
		st.BackgroundImageURL = snapshot.BackgroundImageURL
		st.Busy = false
		st.PendingPlaceholderID = ""
		st.CharacterChanged = false
		st.MemoSaveStatus = SaveStatusIdle

		// A restored form only applies to the session it was issued for.
		if st.Form != nil && st.FormSessionID != snapshot.SessionID {
			st.Form = nil
			st.FormAvailable = false
			st.FormVisible = false
			st.FormSessionID = ""
			dropForeignForm = true
		}
	})
	if stale {
		log.Warn().Str("session_id", sessionID).Msg("discarding stale session response")
		return nil
	}
	if dropForeignForm {
		s.persistForm()
	}

	if conn, _ := s.transport(); conn != nil {
		if err := conn.JoinSession(snapshot.SessionID); err != nil {
			log.Warn().Err(err).Str("session_id", snapshot.SessionID).Msg("failed to announce session membership")
		}
	}

	return nil
}

// ReloadSession re-runs LoadSession for the active session. Guarded no-op
// while busy or when no session is active, so manual refresh cannot stack
// duplicate in-flight loads.
func (s *Store) ReloadSession(ctx context.Context) error {
	s.mu.Lock()
	if s.state.Busy || s.state.SessionID == "" {
		s.mu.Unlock()
		return nil
	}
	sessionID := s.state.SessionID
	s.mu.Unlock()

	return s.LoadSession(ctx, sessionID)
}

// ClearSession disconnects the channel and resets all session-scoped state.
// The pending form survives per the persistence policy.
func (s *Store) ClearSession() {
	s.Disconnect()
	s.mustApply(func(st *State) {
		s.loadGen++
		form, formSession, formAvailable := st.Form, st.FormSessionID, st.FormAvailable
		*st = State{
			Form:          form,
			FormSessionID: formSession,
			FormAvailable: formAvailable,
		}
	})
}

// UpdateTitle applies the title optimistically and persists it. On failure
// the old title is restored and an error line is appended to the timeline.
func (s *Store) UpdateTitle(ctx context.Context, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return fmt.Errorf("update title: %w", ErrInvalidArgument)
	}

	s.mu.Lock()
	sessionID := s.state.SessionID
	previous := s.state.Title
	s.mu.Unlock()
	if sessionID == "" {
		return fmt.Errorf("update title: %w", ErrNoSession)
	}

	s.mustApply(func(st *State) {
		st.Title = title
	})

	if err := s.api.UpdateSession(ctx, sessionID, models.SessionUpdate{Title: &title}); err != nil {
		now := s.clock.Now()
		s.mustApply(func(st *State) {
			st.Title = previous
			st.Messages = append(st.Messages, models.Message{
				ID:        s.newID(),
				Role:      models.RoleSystem,
				Content:   fmt.Sprintf("failed to update title: %v", err),
				CreatedAt: now,
			})
		})
		return fmt.Errorf("update title: %w", err)
	}

	return nil
}

// SaveMemo persists the player's memo and tracks the save status for the view.
func (s *Store) SaveMemo(ctx context.Context, memo string) error {
	s.mu.Lock()
	sessionID := s.state.SessionID
	s.mu.Unlock()
	if sessionID == "" {
		return fmt.Errorf("save memo: %w", ErrNoSession)
	}

	s.mustApply(func(st *State) {
		st.Memo = memo
		st.MemoSaveStatus = SaveStatusSaving
	})

	if err := s.api.UpdateSession(ctx, sessionID, models.SessionUpdate{Memo: &memo}); err != nil {
		s.mustApply(func(st *State) {
			st.MemoSaveStatus = SaveStatusFailed
		})
		return fmt.Errorf("save memo: %w", err)
	}

	s.mustApply(func(st *State) {
		st.MemoSaveStatus = SaveStatusSaved
	})
	return nil
}

// RollDice submits a legacy one-shot roll and surfaces the result in the
// timeline.
func (s *Store) RollDice(ctx context.Context, dice string) (*models.DiceRoll, error) {
	dice = strings.TrimSpace(dice)
	if dice == "" {
		return nil, fmt.Errorf("roll dice: %w", ErrInvalidArgument)
	}

	s.mu.Lock()
	sessionID := s.state.SessionID
	s.mu.Unlock()
	if sessionID == "" {
		return nil, fmt.Errorf("roll dice: %w", ErrNoSession)
	}

	result, err := s.api.RollDice(ctx, sessionID, dice)
	now := s.clock.Now()
	if err != nil {
		s.mustApply(func(st *State) {
			st.Messages = append(st.Messages, models.Message{
				ID:        s.newID(),
				Role:      models.RoleSystem,
				Content:   fmt.Sprintf("dice roll failed: %v", err),
				CreatedAt: now,
			})
		})
		return nil, fmt.Errorf("roll dice: %w", err)
	}

	content := result.Detail
	if content == "" {
		content = fmt.Sprintf("rolled %s: %d", result.Dice, result.Total)
	}
	s.mustApply(func(st *State) {
		st.Messages = append(st.Messages, models.Message{
			ID:        s.newID(),
			Role:      models.RoleSystem,
			Content:   content,
			CreatedAt: now,
		})
	})

	return result, nil
}

// ListSessions fetches the session list for the resume-game screen. Pure
// passthrough; no state is touched.
func (s *Store) ListSessions(ctx context.Context) ([]models.SessionInfo, error) {
	return s.api.ListSessions(ctx)
}

// UpdateField merges one field value into the pending input form. Range
// clamping is a view concern; only the field's existence is checked here.
func (s *Store) UpdateField(key, value string) error {
	err := s.apply(func(st *State) error {
		if st.Form == nil || st.Form.Mode != models.FormModeInput {
			return fmt.Errorf("update field: %w", ErrInvalidArgument)
		}
		item, ok := st.Form.Items[key]
		if !ok {
			return fmt.Errorf("update field: unknown field %q: %w", key, ErrInvalidArgument)
		}
		item.Value = value
		st.Form.Items[key] = item
		return nil
	})
	if err != nil {
		return err
	}

	s.persistForm()
	return nil
}

// ConfirmForm serializes the input form's values, keyed by display label, and
// feeds them into the chat pipeline as the next user message. Values are
// validated strictly: any non-numeric value rejects the whole confirmation
// and leaves the form open.
func (s *Store) ConfirmForm(ctx context.Context) error {
	s.mu.Lock()
	form := s.state.Form
	if form == nil || form.Mode != models.FormModeInput {
		s.mu.Unlock()
		return fmt.Errorf("confirm form: %w", ErrInvalidArgument)
	}
	values := make(map[string]int, len(form.Items))
	for key, item := range form.Items {
		n, err := strconv.Atoi(strings.TrimSpace(item.Value))
		if err != nil {
			s.mu.Unlock()
			return fmt.Errorf("confirm form: field %s has non-numeric value %q: %w", key, item.Value, ErrInvalidArgument)
		}
		label := item.DisplayLabel
		if label == "" {
			label = key
		}
		values[label] = n
	}
	s.mu.Unlock()

	payload, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("confirm form: %w", err)
	}

	if err := s.SendMessage(ctx, string(payload)); err != nil {
		return err
	}

	s.mustApply(func(st *State) {
		// A fresh prompt may have replaced the form while the message was
		// being sent; only the confirmed form is cleared.
		if st.Form != form {
			return
		}
		st.Form = nil
		st.FormSessionID = ""
		st.FormAvailable = false
		st.FormVisible = false
	})
	s.persistForm()

	return nil
}

// ShowFormModal flips the modal visible once data is available. The view
// decides when to call this, typically after its animations settle.
func (s *Store) ShowFormModal() {
	s.mustApply(func(st *State) {
		if st.FormAvailable {
			st.FormVisible = true
		}
	})
}

// CloseFormModal hides the modal without discarding the pending form.
func (s *Store) CloseFormModal() {
	s.mustApply(func(st *State) {
		st.FormVisible = false
	})
}

// AckCharacterChanged clears the character change indicator after the view
// has shown it.
func (s *Store) AckCharacterChanged() {
	s.mustApply(func(st *State) {
		st.CharacterChanged = false
	})
}
