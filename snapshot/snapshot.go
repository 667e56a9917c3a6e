// Package snapshot persists the bingo session between restarts.
//
// A Snapshot is written as a single opaque JSON document. Backends only need
// to store and return that document; they never look inside it.
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound         = errors.New("snapshot not found")
	ErrUnsupportedStore = errors.New("unsupported store")
)

// Cards is the pair of cards dealt to one player for one game.
type Cards struct {
	Card1 []string `json:"card1"`
	Card2 []string `json:"card2"`
}

// Game holds the calling state of the current game, so a restarted server can
// keep calling where it left off.
type Game struct {
	Theme        string   `json:"theme"`
	Calls        []string `json:"calls"`
	Cursor       int      `json:"cursor"`
	History      []string `json:"history"`
	Announcement string   `json:"announcement"`
}

type Snapshot struct {
	CurrentGameID     string                      `json:"currentGameId"`
	PlayerCardsByGame map[string]map[string]Cards `json:"playerCardsByGame"`
	Game              *Game                       `json:"game,omitempty"`
}

// New returns an empty snapshot, which is also what a failed load falls back to.
func New() *Snapshot {
	return &Snapshot{
		PlayerCardsByGame: make(map[string]map[string]Cards),
	}
}

type wireSnapshot struct {
	CurrentGameID     *string                     `json:"currentGameId"`
	PlayerCardsByGame map[string]map[string]Cards `json:"playerCardsByGame"`
	Game              *Game                       `json:"game,omitempty"`
}

// MarshalJSON writes an empty game id as null.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	w := wireSnapshot{
		PlayerCardsByGame: s.PlayerCardsByGame,
		Game:              s.Game,
	}
	if s.CurrentGameID != "" {
		id := s.CurrentGameID
		w.CurrentGameID = &id
	}
	if w.PlayerCardsByGame == nil {
		w.PlayerCardsByGame = map[string]map[string]Cards{}
	}

	return json.Marshal(w)
}

func (s *Snapshot) UnmarshalJSON(data []byte) error {
	var w wireSnapshot
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	s.CurrentGameID = ""
	if w.CurrentGameID != nil {
		s.CurrentGameID = *w.CurrentGameID
	}
	s.PlayerCardsByGame = w.PlayerCardsByGame
	if s.PlayerCardsByGame == nil {
		s.PlayerCardsByGame = make(map[string]map[string]Cards)
	}
	s.Game = w.Game

	return nil
}

// Clone returns a deep copy, so the caller may keep mutating the receiver
// while the copy is written out.
func (s *Snapshot) Clone() *Snapshot {
	out := &Snapshot{
		CurrentGameID:     s.CurrentGameID,
		PlayerCardsByGame: make(map[string]map[string]Cards, len(s.PlayerCardsByGame)),
	}

	for gameID, players := range s.PlayerCardsByGame {
		m := make(map[string]Cards, len(players))
		for name, c := range players {
			m[name] = Cards{
				Card1: append([]string(nil), c.Card1...),
				Card2: append([]string(nil), c.Card2...),
			}
		}
		out.PlayerCardsByGame[gameID] = m
	}

	if s.Game != nil {
		g := *s.Game
		g.Calls = append([]string(nil), s.Game.Calls...)
		g.History = append([]string(nil), s.Game.History...)
		out.Game = &g
	}

	return out
}

// Store is an opaque key-value home for the snapshot document.
type Store interface {
	// Load returns ErrNotFound when nothing has been saved yet.
	Load(ctx context.Context) (*Snapshot, error)
	Save(ctx context.Context, s *Snapshot) error
	Close() error
}

// Open picks a backend from location:
//
//	memory:               in-process only
//	sqlite://path.db      SQLite key/value table
//	postgres://...        Postgres key/value table
//	anything else         JSON file at that path
func Open(ctx context.Context, location string) (Store, error) {
	switch {
	case location == "memory:":
		return NewMemory(), nil
	case strings.HasPrefix(location, "sqlite://"):
		s, err := OpenSQLite(ctx, strings.TrimPrefix(location, "sqlite://"))
		if err != nil {
			return nil, err
		}
		return s, nil
	case strings.HasPrefix(location, "postgres://"), strings.HasPrefix(location, "postgresql://"):
		p, err := OpenPostgres(ctx, location)
		if err != nil {
			return nil, err
		}
		return p, nil
	case strings.Contains(location, "://"):
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedStore, location)
	case location == "":
		return nil, fmt.Errorf("%w: empty location", ErrUnsupportedStore)
	default:
		return NewFile(location), nil
	}
}
