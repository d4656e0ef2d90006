package session

import (
	"context"
	"errors"
	"testing"

	"github.com/loreweaver/keeper/go/internal/channel"
	"github.com/loreweaver/keeper/go/internal/models"
)

func promptInputForm(t *testing.T, e *env) {
	t.Helper()
	e.handler(t)(channel.FormPrompt{Form: models.FormData{
		Mode:  models.FormModeInput,
		Title: "Allocate attribute points",
		Point: models.FormField{DisplayLabel: "Points", Value: "20"},
		Items: map[string]models.FormField{
			"STR": {DisplayLabel: "STR", Value: "50", MinValue: 15, MaxValue: 90, Editable: true},
			"DEX": {DisplayLabel: "DEX", Value: "60", MinValue: 15, MaxValue: 90, Editable: true},
		},
	}})
}

func TestFormPromptMakesFormAvailableNotVisible(t *testing.T) {
	e := newEnv(t)
	e.connect(t)

	promptInputForm(t, e)

	st := e.store.Snapshot()
	if st.Form == nil || st.Form.Mode != models.FormModeInput {
		t.Fatalf("form not stored: %+v", st.Form)
	}
	if !st.FormAvailable {
		t.Fatalf("expected form available")
	}
	if st.FormVisible {
		t.Fatalf("visibility is view-controlled; prompt must not show the modal")
	}
}

func TestShowFormModalRequiresAvailableForm(t *testing.T) {
	e := newEnv(t)
	e.connect(t)

	e.store.ShowFormModal()
	if e.store.Snapshot().FormVisible {
		t.Fatalf("modal shown with no form available")
	}

	promptInputForm(t, e)
	e.store.ShowFormModal()
	if !e.store.Snapshot().FormVisible {
		t.Fatalf("expected modal visible")
	}

	e.store.CloseFormModal()
	st := e.store.Snapshot()
	if st.FormVisible {
		t.Fatalf("expected modal hidden")
	}
	if st.Form == nil || !st.FormAvailable {
		t.Fatalf("closing the modal must not discard the pending form")
	}
}

func TestUpdateField(t *testing.T) {
	e := newEnv(t)
	e.connect(t)
	promptInputForm(t, e)

	if err := e.store.UpdateField("STR", "65"); err != nil {
		t.Fatalf("UpdateField failed: %v", err)
	}
	if got := e.store.Snapshot().Form.Items["STR"].Value; got != "65" {
		t.Fatalf("field not updated: %q", got)
	}

	if err := e.store.UpdateField("LUCK", "40"); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for unknown field, got %v", err)
	}
}

func TestUpdateFieldWithoutInputForm(t *testing.T) {
	e := newEnv(t)

	if err := e.store.UpdateField("STR", "65"); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument with no form, got %v", err)
	}
}

func TestConfirmFormRejectsNonNumericValues(t *testing.T) {
	e := newEnv(t)
	e.connect(t)
	promptInputForm(t, e)
	if err := e.store.UpdateField("STR", "lots"); err != nil {
		t.Fatalf("UpdateField failed: %v", err)
	}

	err := e.store.ConfirmForm(context.Background())
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}

	st := e.store.Snapshot()
	if st.Form == nil || !st.FormAvailable {
		t.Fatalf("rejected confirmation must leave the form open")
	}
	e.tr.mu.Lock()
	sends := len(e.tr.sent)
	e.tr.mu.Unlock()
	if sends != 0 {
		t.Fatalf("rejected confirmation must not emit a message")
	}
}

func TestConfirmFormKeepsPromptArrivingDuringSend(t *testing.T) {
	e := newEnv(t)
	e.connect(t)
	promptInputForm(t, e)

	// A fresh prompt lands while the confirmation message is being emitted.
	e.tr.mu.Lock()
	e.tr.sendHook = func() {
		e.handler(t)(channel.FormPrompt{Form: models.FormData{
			Mode:  models.FormModeInput,
			Title: "Spend your improvement points",
			Items: map[string]models.FormField{
				"LUCK": {DisplayLabel: "LUCK", Value: "40", Editable: true},
			},
		}})
	}
	e.tr.mu.Unlock()

	if err := e.store.ConfirmForm(context.Background()); err != nil {
		t.Fatalf("ConfirmForm failed: %v", err)
	}

	st := e.store.Snapshot()
	if st.Form == nil || st.Form.Title != "Spend your improvement points" {
		t.Fatalf("prompt arriving during confirmation was clobbered: %+v", st.Form)
	}
	if !st.FormAvailable {
		t.Fatalf("expected the new form available")
	}
}

func TestSummaryUpdatedOpensViewModal(t *testing.T) {
	e := newEnv(t)
	e.connect(t)
	promptInputForm(t, e)

	e.handler(t)(channel.SummaryUpdated{Summary: models.Summary{
		GoldenFacts:  []string{"Agnes owes the innkeeper"},
		RecentEvents: "The party entered the manor.",
		NPCDescriptions: []models.NPCDescription{
			{Name: "Old Tom", Description: "the groundskeeper"},
		},
	}})

	st := e.store.Snapshot()
	if st.Summary == nil || len(st.Summary.GoldenFacts) != 1 {
		t.Fatalf("summary not stored: %+v", st.Summary)
	}
	if st.Form == nil || st.Form.Mode != models.FormModeView {
		t.Fatalf("expected view-mode form, got %+v", st.Form)
	}
	if !st.FormAvailable || !st.FormVisible {
		t.Fatalf("summary delivery opens the modal immediately")
	}
}

func TestFormPersistedOnPromptAndClearedOnConfirm(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	if err := e.store.LoadSession(ctx, "abc123"); err != nil {
		t.Fatalf("LoadSession failed: %v", err)
	}
	e.handler(t)(channel.Connected{})
	promptInputForm(t, e)

	e.forms.mu.Lock()
	saved := len(e.forms.saved)
	var last *models.PendingForm
	if e.forms.stored != nil {
		copied := *e.forms.stored
		last = &copied
	}
	e.forms.mu.Unlock()
	if saved == 0 || last == nil {
		t.Fatalf("expected form persisted on prompt")
	}
	if last.SessionID != "abc123" {
		t.Fatalf("persisted form bound to wrong session: %q", last.SessionID)
	}

	if err := e.store.ConfirmForm(ctx); err != nil {
		t.Fatalf("ConfirmForm failed: %v", err)
	}
	e.forms.mu.Lock()
	cleared := e.forms.cleared
	e.forms.mu.Unlock()
	if cleared == 0 {
		t.Fatalf("expected persisted form cleared on confirm")
	}
}

func TestPersistedFormRestoredOnStartup(t *testing.T) {
	e := newEnv(t)
	e.forms.stored = &models.PendingForm{
		SessionID: "abc123",
		Form: models.FormData{
			Mode:  models.FormModeInput,
			Items: map[string]models.FormField{"STR": {DisplayLabel: "STR", Value: "50"}},
		},
		Available: true,
	}

	var nextID int
	store := NewStore(e.api, e.creds, func(ctx context.Context, token string, h channel.Handler) (Transport, error) {
		e.handlers = append(e.handlers, h)
		return e.tr, nil
	}, Options{
		Forms: e.forms,
		NewID: func() string { nextID++; return "restored" },
	})

	st := store.Snapshot()
	if st.Form == nil || st.Form.Items["STR"].Value != "50" {
		t.Fatalf("persisted form not restored: %+v", st.Form)
	}
	if st.FormSessionID != "abc123" || !st.FormAvailable {
		t.Fatalf("restored form metadata wrong: %q %v", st.FormSessionID, st.FormAvailable)
	}
	if st.FormVisible {
		t.Fatalf("restored form must not auto-open the modal")
	}
}

func TestForeignFormDroppedOnLoad(t *testing.T) {
	e := newEnv(t)
	e.connect(t)

	// Bind the prompt to one session, then load a different one.
	if err := e.store.LoadSession(context.Background(), "abc123"); err != nil {
		t.Fatalf("LoadSession failed: %v", err)
	}
	promptInputForm(t, e)

	if err := e.store.LoadSession(context.Background(), "other456"); err != nil {
		t.Fatalf("LoadSession failed: %v", err)
	}

	st := e.store.Snapshot()
	if st.Form != nil || st.FormAvailable || st.FormVisible {
		t.Fatalf("form of another session must be dropped on load: %+v", st)
	}
	e.forms.mu.Lock()
	cleared := e.forms.cleared
	e.forms.mu.Unlock()
	if cleared == 0 {
		t.Fatalf("expected persisted form cleared when dropped")
	}
}
