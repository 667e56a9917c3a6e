package bingo

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gorilla/websocket"

	"github.com/Seednode/bingobox/snapshot"
)

// Persister accepts snapshots for writing without blocking the caller.
type Persister interface {
	Enqueue(s *snapshot.Snapshot)
}

type Client struct {
	id   string
	conn *websocket.Conn
	send chan Message
}

// inbound is a client frame, or the client's departure when leave is set.
// Both share one queue so a disconnect never overtakes frames sent before it.
type inbound struct {
	client *Client
	msg    ClientMessage
	leave  bool
}

// Hub owns the session and the roster. Every connection event and client
// message is handled to completion on the Run goroutine, one at a time, so
// broadcasts from one event always reach clients before those of the next.
type Hub struct {
	session  *Session
	registry *Registry
	clients  map[string]*Client

	register chan *Client
	events   chan inbound
	done     chan struct{}

	persister Persister
	logf      func(format string, args ...any)
}

func NewHub(session *Session, persister Persister, logf func(format string, args ...any)) *Hub {
	if session == nil {
		session = NewSession()
	}
	if logf == nil {
		logf = func(string, ...any) {}
	}

	return &Hub{
		session:   session,
		registry:  NewRegistry(),
		clients:   make(map[string]*Client),
		register:  make(chan *Client),
		events:    make(chan inbound, 64),
		done:      make(chan struct{}),
		persister: persister,
		logf:      logf,
	}
}

func (h *Hub) Run(ctx context.Context) error {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return nil

		case c := <-h.register:
			h.handleRegister(c)

		case in := <-h.events:
			if in.leave {
				h.handleUnregister(in.client)
				continue
			}
			h.handle(in.client, in.msg)
		}
	}
}

// Register, Unregister and Submit are safe to call from any goroutine. After
// Run has returned they do nothing.
func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.events <- inbound{client: c, leave: true}:
	case <-h.done:
	}
}

func (h *Hub) Submit(c *Client, msg ClientMessage) {
	select {
	case h.events <- inbound{client: c, msg: msg}:
	case <-h.done:
	}
}

// handleRegister catches a new connection up on the whole game before it can
// act: game info, confirmed calls, roster, then the ticker.
func (h *Hub) handleRegister(c *Client) {
	h.clients[c.id] = c

	h.reply(c, EvtGameInfo, h.session.Info())
	h.reply(c, EvtCallUpdate, h.session.History())
	h.reply(c, EvtPlayerList, h.registry.Roster())
	h.reply(c, EvtAnnouncement, h.session.Announcement())

	h.broadcast(EvtPlayerCount, len(h.clients))
	h.broadcast(EvtPlayerList, h.registry.Roster())
}

func (h *Hub) handleUnregister(c *Client) {
	if cur, ok := h.clients[c.id]; ok && cur == c {
		delete(h.clients, c.id)
		close(c.send)
	}

	if name, ok := h.registry.Name(c.id); ok {
		h.logf("GAMES: Player %q left", name)
	}
	h.registry.Remove(c.id)

	h.broadcast(EvtPlayerCount, len(h.clients))
	h.broadcast(EvtPlayerList, h.registry.Roster())
}

func (h *Hub) handle(c *Client, msg ClientMessage) {
	if h.clients[c.id] != c {
		return
	}

	switch msg.Event {
	case EvtJoinGame:
		h.handleJoin(c, parseJoin(msg.Data))

	case EvtRequestCards:
		name, _ := parseString(msg.Data)
		h.handleRequestCards(c, name)

	case EvtStartGame, EvtStartGameOld:
		var theme Theme
		if err := json.Unmarshal(msg.Data, &theme); err != nil {
			h.logf("GAMES: Ignoring malformed %s: %v", msg.Event, err)
			return
		}
		h.handleStart(theme)

	case EvtPattern:
		if pattern, ok := parseString(msg.Data); ok {
			h.broadcast(EvtBingoPattern, pattern)
		}

	case EvtPreviewSong:
		if item, ok := parseString(msg.Data); ok {
			h.reply(c, EvtPreviewSong, item)
		}

	case EvtConfirmSong:
		if item, ok := parseString(msg.Data); ok {
			h.handleConfirm(item)
		}

	case EvtNextCall:
		h.handleNext()

	case EvtBingoClaim:
		name, _ := parseString(msg.Data)
		h.handleClaim(c, name)

	case EvtAnnouncement:
		text, _ := parseString(msg.Data)
		h.handleAnnouncement(text)

	case EvtClearSongs:
		h.broadcast(EvtClearBigscreen, nil)

	default:
		h.logf("GAMES: Ignoring unknown event %q", msg.Event)
	}
}

func (h *Hub) handleJoin(c *Client, req JoinRequest) {
	name, renamed, err := h.registry.Resolve(c.id, req.Name, req.Resume)
	if err != nil {
		h.reply(c, EvtJoinFailed, reasonInvalidName)
		return
	}

	h.reply(c, EvtJoinAccepted, name)
	if renamed {
		h.reply(c, EvtNameDisambiguated, name)
	}
	h.broadcast(EvtPlayerList, h.registry.Roster())

	h.logf("GAMES: Player %q joined (resume=%t)", name, req.Resume)

	if h.session.CanDeal() {
		h.deal(c, name)
	}
}

func (h *Hub) handleRequestCards(c *Client, name string) {
	if name == "" {
		name, _ = h.registry.Name(c.id)
	}
	if name == "" {
		return
	}

	h.deal(c, name)
}

// deal sends name's cards for the current game to c, drawing them first if
// this is the first time name has asked.
func (h *Hub) deal(c *Client, name string) {
	cards, created, err := h.session.CardsFor(name)
	if err != nil {
		return
	}
	if created {
		h.persist()
	}

	h.reply(c, EvtGenerateCard, cards)
}

func (h *Hub) handleStart(theme Theme) {
	info := h.session.Start(theme)

	h.logf("GAMES: Started game %s (theme %q, %d songs)", info.GameID, info.Theme, len(theme.Songs))

	h.broadcast(EvtGameInfo, info)
	h.broadcast(EvtCallUpdate, h.session.History())

	h.registry.Each(func(connID, name string) {
		c, ok := h.clients[connID]
		if !ok {
			return
		}

		cards, _, err := h.session.CardsFor(name)
		if err != nil {
			return
		}
		h.reply(c, EvtGenerateCard, cards)
	})

	h.persist()
}

func (h *Hub) handleConfirm(item string) {
	h.session.Confirm(item)

	h.broadcast(EvtNewCall, item)
	h.broadcast(EvtBroadcastSong, item)

	h.persist()
}

func (h *Hub) handleNext() {
	item, ok := h.session.Next()
	if !ok {
		return
	}

	h.broadcast(EvtNewCall, item)
	h.broadcast(EvtBroadcastSong, item)

	h.persist()
}

func (h *Hub) handleClaim(c *Client, name string) {
	if name == "" {
		name, _ = h.registry.Name(c.id)
	}
	if name == "" {
		name = "Someone"
	}

	h.logf("GAMES: %q called bingo", name)

	h.broadcast(EvtBingoAlert, fmt.Sprintf("%s called BINGO!", name))
}

func (h *Hub) handleAnnouncement(text string) {
	h.session.SetAnnouncement(text)

	h.broadcast(EvtAnnouncement, text)

	h.persist()
}

func (h *Hub) persist() {
	if h.persister == nil {
		return
	}

	h.persister.Enqueue(h.session.Snapshot())
}

func (h *Hub) reply(c *Client, event string, data any) {
	if h.clients[c.id] != c {
		return
	}

	select {
	case c.send <- Message{Event: event, Data: data}:
	default:
		h.drop(c)
	}
}

func (h *Hub) broadcast(event string, data any) {
	msg := Message{Event: event, Data: data}

	for _, c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.drop(c)
		}
	}
}

// drop disconnects a client whose queue is full. Its read pump will notice
// the closed socket and unregister it, which refreshes the roster.
func (h *Hub) drop(c *Client) {
	delete(h.clients, c.id)
	close(c.send)
}

func (h *Hub) closeAll() {
	for id, c := range h.clients {
		close(c.send)
		delete(h.clients, id)
	}
}
