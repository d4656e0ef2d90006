package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/loreweaver/keeper/go/internal/channel"
	"github.com/loreweaver/keeper/go/internal/credentials"
	"github.com/loreweaver/keeper/go/internal/models"
)

// GameAPI is the REST surface the synchronizer consumes.
type GameAPI interface {
	GetSession(ctx context.Context, sessionID string) (*models.SessionSnapshot, error)
	ListSessions(ctx context.Context) ([]models.SessionInfo, error)
	UpdateSession(ctx context.Context, sessionID string, update models.SessionUpdate) error
	RollDice(ctx context.Context, sessionID, dice string) (*models.DiceRoll, error)
}

// Transport is one live realtime channel. At most one exists per store.
type Transport interface {
	JoinSession(sessionID string) error
	CreateSession() error
	SendMessage(sessionID, text string) error
	Close() error
}

// Dialer opens a Transport whose events flow into the given handler.
type Dialer func(ctx context.Context, token string, handler channel.Handler) (Transport, error)

// ChannelDialer adapts channel.Dial to the Dialer contract.
func ChannelDialer(cfg channel.Config) Dialer {
	return func(ctx context.Context, token string, handler channel.Handler) (Transport, error) {
		return channel.Dial(ctx, cfg, token, handler)
	}
}

// Analytics is a fire-and-forget event sink. Failures never surface.
type Analytics interface {
	Track(event string, props map[string]string)
}

// FormPersister stores the in-progress form across app restarts.
type FormPersister interface {
	Save(form models.PendingForm) error
	Load() (*models.PendingForm, error)
	Clear() error
}

// Options configures optional store collaborators.
type Options struct {
	Analytics Analytics
	Forms     FormPersister
	Clock     clockwork.Clock
	NewID     func() string
}

// Store is the session synchronizer: it owns the connection lifecycle, the
// message timeline, the session load/create flow, and the server-driven
// modal/form state. Every transition happens atomically under one mutex;
// subscribers observe a consistent snapshot after each one.
type Store struct {
	api       GameAPI
	creds     credentials.Store
	dial      Dialer
	analytics Analytics
	forms     FormPersister
	clock     clockwork.Clock
	newID     func() string

	mu         sync.Mutex
	state      State
	conn       Transport
	connecting bool
	connEpoch  uint64
	loadGen    uint64
	subs       map[int]func(State)
	nextSub    int
}

// NewStore builds a synchronizer. If a FormPersister is supplied, a pending
// form saved by a previous run is restored into the initial state.
func NewStore(api GameAPI, creds credentials.Store, dial Dialer, opts Options) *Store {
	s := &Store{
		api:       api,
		creds:     creds,
		dial:      dial,
		analytics: opts.Analytics,
		forms:     opts.Forms,
		clock:     opts.Clock,
		newID:     opts.NewID,
		subs:      make(map[int]func(State)),
	}
	if s.clock == nil {
		s.clock = clockwork.NewRealClock()
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}

	if s.forms != nil {
		pending, err := s.forms.Load()
		if err != nil {
			log.Warn().Err(err).Msg("failed to restore pending form")
		} else if pending != nil {
			s.state.Form = &pending.Form
			s.state.FormSessionID = pending.SessionID
			s.state.FormAvailable = pending.Available
			log.Info().Str("session_id", pending.SessionID).Msg("restored pending form")
		}
	}

	return s
}

// Subscribe registers a listener invoked with a state snapshot after every
// transition. The returned function unsubscribes it.
func (s *Store) Subscribe(fn func(State)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.snapshot()
}

// apply runs one atomic transition. If fn returns an error the state must be
// left untouched and subscribers are not notified.
func (s *Store) apply(fn func(st *State) error) error {
	s.mu.Lock()
	if err := fn(&s.state); err != nil {
		s.mu.Unlock()
		return err
	}
	snap := s.state.snapshot()
	subs := make([]func(State), 0, len(s.subs))
	for _, sub := range s.subs {
		subs = append(subs, sub)
	}
	s.mu.Unlock()

	for _, sub := range subs {
		sub(snap)
	}
	return nil
}

// mustApply is apply for transitions that cannot fail.
func (s *Store) mustApply(fn func(st *State)) {
	s.apply(func(st *State) error {
		fn(st)
		return nil
	})
}

// Connect establishes the realtime channel. Idempotent: a second call while
// a connection exists (or is being established) is a no-op. It fails with
// ErrNoCredential when the credential store is empty, without attempting a
// connection.
func (s *Store) Connect(ctx context.Context) error {
	s.mu.Lock()
	if s.conn != nil || s.connecting {
		s.mu.Unlock()
		return nil
	}
	s.connecting = true
	s.connEpoch++
	epoch := s.connEpoch
	s.mu.Unlock()

	token, err := s.creds.Token(ctx)
	if err != nil {
		s.mu.Lock()
		s.connecting = false
		s.mu.Unlock()
		log.Error().Err(err).Msg("cannot connect channel without credential")
		return fmt.Errorf("connect: %w", ErrNoCredential)
	}

	conn, err := s.dial(ctx, token, func(evt channel.Event) {
		s.handleEvent(epoch, evt)
	})

	s.mu.Lock()
	s.connecting = false
	if err != nil {
		s.mu.Unlock()
		log.Error().Err(err).Msg("channel connection failed")
		return fmt.Errorf("connect channel: %w", err)
	}
	if epoch != s.connEpoch {
		// Torn down while the dial was in flight; the new transport must not
		// be installed.
		s.mu.Unlock()
		conn.Close()
		log.Info().Msg("discarding channel established after teardown")
		return nil
	}
	s.conn = conn
	alreadyUp := s.state.Connected
	sessionID := s.state.SessionID
	s.mu.Unlock()

	// The Connected event normally triggers the join, but it may have fired
	// before the transport reference was recorded.
	if alreadyUp && sessionID != "" {
		if err := conn.JoinSession(sessionID); err != nil {
			log.Warn().Err(err).Str("session_id", sessionID).Msg("failed to announce session membership")
		}
	}

	return nil
}

// Disconnect closes the channel if one is open. Idempotent. Must be called
// before discarding the store or switching sessions so stale events cannot
// mutate reset state.
func (s *Store) Disconnect() {
	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	// From here on, events from this connection (or from a dial still in
	// flight) are stale and must be dropped.
	s.connEpoch++
	s.mu.Unlock()

	if conn == nil {
		return
	}
	if err := conn.Close(); err != nil {
		log.Warn().Err(err).Msg("error closing channel")
	}
	s.mustApply(func(st *State) {
		st.Connected = false
	})
}

// transport returns the live transport and current session id.
func (s *Store) transport() (Transport, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn, s.state.SessionID
}

// persistForm writes the current pending form to the persister, if any.
func (s *Store) persistForm() {
	if s.forms == nil {
		return
	}

	s.mu.Lock()
	var pending *models.PendingForm
	if s.state.Form != nil && s.state.Form.Mode == models.FormModeInput {
		form := s.state.Form.DeepCopy()
		pending = &models.PendingForm{
			SessionID: s.state.FormSessionID,
			Form:      *form,
			Available: s.state.FormAvailable,
		}
	}
	s.mu.Unlock()

	if pending == nil {
		if err := s.forms.Clear(); err != nil {
			log.Warn().Err(err).Msg("failed to clear persisted form")
		}
		return
	}
	if err := s.forms.Save(*pending); err != nil {
		log.Warn().Err(err).Msg("failed to persist pending form")
	}
}
