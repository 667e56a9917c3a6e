package bingo

import (
	"errors"

	"github.com/google/uuid"

	"github.com/Seednode/bingobox/snapshot"
)

var ErrNoGame = errors.New("no game in progress")

// newGameID returns a time-ordered id, so ids stay unique across restarts.
var newGameID = func() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Theme is the host's pool of callable items for one game.
type Theme struct {
	Name  string   `json:"name"`
	Songs []string `json:"songs"`
}

type GameInfo struct {
	GameID string `json:"gameId"`
	Theme  string `json:"theme"`
}

// Session is the authoritative state of the current game. Like Registry, it
// belongs to the hub goroutine.
type Session struct {
	gameID       string
	theme        string
	calls        []string // fixed at start
	cursor       int      // how many of calls next-call has revealed
	history      []string // confirmed calls, in order
	announcement string

	// known is false after restoring a snapshot that lacks the call order, so
	// only players with saved cards can be served.
	known bool
	cards map[string]snapshot.Cards // player name -> cards for gameID
}

func NewSession() *Session {
	return &Session{
		cards: make(map[string]snapshot.Cards),
	}
}

// Restore rebuilds a session from a persisted snapshot. Only the current
// game's cards are kept.
func Restore(s *snapshot.Snapshot) *Session {
	sess := NewSession()
	if s == nil || s.CurrentGameID == "" {
		return sess
	}

	sess.gameID = s.CurrentGameID
	for name, c := range s.PlayerCardsByGame[s.CurrentGameID] {
		sess.cards[name] = c
	}

	if g := s.Game; g != nil {
		sess.known = true
		sess.theme = g.Theme
		sess.calls = append([]string(nil), g.Calls...)
		sess.cursor = min(max(g.Cursor, 0), len(sess.calls))
		sess.history = append([]string(nil), g.History...)
		sess.announcement = g.Announcement
	}

	return sess
}

// Start replaces the current game. Cards dealt for any earlier game are gone.
func (s *Session) Start(theme Theme) GameInfo {
	s.gameID = newGameID()
	s.theme = theme.Name
	s.calls = Shuffle(theme.Songs)
	s.cursor = 0
	s.history = nil
	s.known = true
	s.cards = make(map[string]snapshot.Cards)

	return GameInfo{GameID: s.gameID, Theme: s.theme}
}

// Info is nil when no game has been started.
func (s *Session) Info() *GameInfo {
	if s.gameID == "" {
		return nil
	}

	return &GameInfo{GameID: s.gameID, Theme: s.theme}
}

// CanDeal reports whether joining players should be dealt cards.
func (s *Session) CanDeal() bool {
	return s.gameID != "" && len(s.calls) > 0
}

// Confirm records item as called. It need not appear in the call order.
func (s *Session) Confirm(item string) {
	s.history = append(s.history, item)
}

// Next reveals the next item of the call order. ok is false once every item
// has been revealed.
func (s *Session) Next() (item string, ok bool) {
	if s.cursor >= len(s.calls) {
		return "", false
	}

	s.cursor++

	return s.calls[s.cursor-1], true
}

func (s *Session) SetAnnouncement(text string) {
	s.announcement = text
}

func (s *Session) Announcement() string {
	return s.announcement
}

// History returns the confirmed calls, never nil.
func (s *Session) History() []string {
	return append([]string{}, s.history...)
}

func (s *Session) Calls() []string {
	return append([]string{}, s.calls...)
}

func (s *Session) Cursor() int {
	return s.cursor
}

// CardsFor returns the cards dealt to name in this game, dealing them first if
// needed. Once dealt, the same cards are returned for the rest of the game. An
// empty theme deals empty cards.
func (s *Session) CardsFor(name string) (cards snapshot.Cards, created bool, err error) {
	if s.gameID == "" {
		return snapshot.Cards{}, false, ErrNoGame
	}

	if c, ok := s.cards[name]; ok {
		return c, false, nil
	}

	if !s.known {
		return snapshot.Cards{}, false, ErrNoGame
	}

	c := DrawCards(s.calls)
	s.cards[name] = c

	return c, true, nil
}

// Snapshot shares slices with the session; copy it before handing it to
// another goroutine.
func (s *Session) Snapshot() *snapshot.Snapshot {
	snap := snapshot.New()
	if s.gameID == "" {
		return snap
	}

	snap.CurrentGameID = s.gameID
	snap.PlayerCardsByGame[s.gameID] = s.cards
	snap.Game = &snapshot.Game{
		Theme:        s.theme,
		Calls:        s.calls,
		Cursor:       s.cursor,
		History:      s.history,
		Announcement: s.announcement,
	}

	return snap
}
