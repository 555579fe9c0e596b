package investigation

import (
	"context"
	"log/slog"
	"sync"

	"dcia/internal/models"
)

// Session is the investigation session controller. It composes a Navigator
// and a ChatSession, and keeps the cross-component invariants: the search
// query resets on a subtype change but survives a device toggle, and the
// chat session is re-seeded whenever its (subtype, device) context changes.
//
// One Session belongs to one browser session; it is never shared across
// concurrent investigations.
type Session struct {
	catalog CatalogClient
	qa      QAClient
	logger  *slog.Logger

	navigator *Navigator

	mu          sync.Mutex
	query       string
	chat        *ChatSession
	chatSubtype string
	chatDevice  models.DeviceType
}

func NewSession(catalog CatalogClient, qa QAClient, logger *slog.Logger) *Session {
	return &Session{
		catalog:   catalog,
		qa:        qa,
		logger:    logger,
		navigator: NewNavigator(catalog, logger),
	}
}

// CrimeSubtypes lists the crime subtypes available for investigation.
func (s *Session) CrimeSubtypes(ctx context.Context) ([]string, error) {
	return s.catalog.ListCrimeSubtypes(ctx)
}

// Navigate selects the (subtype, device) pair and fetches its evidence list.
//
// Repeating the currently active pair while it is loading or ready is a
// no-op, so identical calls never duplicate fetches. A subtype change resets
// the search query; a pure device toggle preserves it.
func (s *Session) Navigate(ctx context.Context, subtype string, device models.DeviceType) error {
	subtype = models.NormalizeSubtype(subtype)

	snapshot := s.navigator.Snapshot()
	if snapshot.Subtype == subtype && snapshot.Device == device &&
		(snapshot.State == StateLoading || snapshot.State == StateReady) {
		return nil
	}
	if snapshot.Subtype != subtype {
		s.mu.Lock()
		s.query = ""
		s.mu.Unlock()
	}
	return s.navigator.Navigate(ctx, subtype, device)
}

// SetSubtype forwards to the navigator; an empty subtype clears the
// navigation back to Idle. The search query resets either way since the
// taxonomy context changes.
func (s *Session) SetSubtype(ctx context.Context, subtype string) error {
	s.mu.Lock()
	s.query = ""
	s.mu.Unlock()
	return s.navigator.SetSubtype(ctx, subtype)
}

// SelectDevice toggles the device type within the current subtype, keeping
// the active search query.
func (s *Session) SelectDevice(ctx context.Context, device models.DeviceType) error {
	return s.navigator.SelectDevice(ctx, device)
}

// Search stores the query and filters the navigator's current items. When
// the navigation is not Ready the result is empty.
func (s *Session) Search(query string) []models.Artefact {
	s.mu.Lock()
	s.query = query
	s.mu.Unlock()

	snapshot := s.navigator.Snapshot()
	if snapshot.State != StateReady {
		return nil
	}
	return Filter(snapshot.Artefacts, query)
}

// Query returns the active search query.
func (s *Session) Query() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.query
}

// Navigation returns a snapshot of the navigator state with the stored query
// already applied to the Ready-state artefacts.
func (s *Session) Navigation() NavigationSnapshot {
	snapshot := s.navigator.Snapshot()
	s.mu.Lock()
	query := s.query
	s.mu.Unlock()
	if snapshot.State == StateReady {
		snapshot.Artefacts = Filter(snapshot.Artefacts, query)
	}
	return snapshot
}

// OpenChat returns the chat session scoped to the given context, re-seeding
// the transcript when the (subtype, device) context changed since the chat
// was last opened.
func (s *Session) OpenChat(subtype string, device models.DeviceType) *ChatSession {
	return s.openChat(subtype, device, "")
}

// AskAboutArtefact opens a chat session scoped to the (subtype, device)
// context from a specific artefact. The artefact is informational routing
// only; its existence is not re-validated. An already open chat for the same
// context is reused so the transcript survives the round trip.
func (s *Session) AskAboutArtefact(artefact, subtype string, device models.DeviceType) *ChatSession {
	return s.openChat(subtype, device, artefact)
}

func (s *Session) openChat(subtype string, device models.DeviceType, artefact string) *ChatSession {
	subtype = models.NormalizeSubtype(subtype)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.chat == nil || s.chatSubtype != subtype || s.chatDevice != device {
		s.chat = NewChatSession(s.qa, s.logger, subtype, device, artefact)
		s.chatSubtype = subtype
		s.chatDevice = device
	}
	return s.chat
}

// Ask forwards the question to the chat session, opening one for the current
// navigation context when none exists yet.
func (s *Session) Ask(ctx context.Context, question string) error {
	s.mu.Lock()
	chat := s.chat
	s.mu.Unlock()
	if chat == nil {
		snapshot := s.navigator.Snapshot()
		chat = s.openChat(snapshot.Subtype, snapshot.Device, "")
	}
	return chat.Ask(ctx, question)
}

// Transcript returns the chat transcript, or nil when no chat is open.
func (s *Session) Transcript() []models.ChatMessage {
	s.mu.Lock()
	chat := s.chat
	s.mu.Unlock()
	if chat == nil {
		return nil
	}
	return chat.Transcript()
}
