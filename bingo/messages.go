package bingo

import (
	"encoding/json"
)

// Events sent by clients
const (
	EvtJoinGame     = "join-game"
	EvtRequestCards = "request-cards"
	EvtStartGame    = "start-game"
	EvtStartGameOld = "startgame"
	EvtPattern      = "pattern-change"
	EvtPreviewSong  = "previewSong"
	EvtConfirmSong  = "confirmSong"
	EvtNextCall     = "next-call"
	EvtBingoClaim   = "bingo-claim"
	EvtAnnouncement = "announcement"
	EvtClearSongs   = "clear-songs"
)

// Events sent by the server
const (
	EvtJoinAccepted      = "join-accepted"
	EvtJoinFailed        = "join-failed"
	EvtNameDisambiguated = "name-disambiguated"
	EvtGameInfo          = "game-info"
	EvtCallUpdate        = "call-update"
	EvtNewCall           = "new-call"
	EvtBroadcastSong     = "broadcastSong" // legacy alias of new-call
	EvtGenerateCard      = "generateCard"
	EvtPlayerList        = "player-list"
	EvtPlayerCount       = "player-count"
	EvtBingoPattern      = "bingo-pattern"
	EvtBingoAlert        = "bingo-alert"
	EvtClearBigscreen    = "clear-bigscreen"
)

const reasonInvalidName = "Invalid name"

// ClientMessage is one frame read from a client.
type ClientMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Message is one frame written to a client.
type Message struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// JoinRequest is the normalized join-game payload.
type JoinRequest struct {
	Name   string `json:"name"`
	Resume bool   `json:"resume"`
}

// parseJoin accepts either a bare name or {"name": ..., "resume": ...}.
// Anything else yields an empty name, which the registry rejects.
func parseJoin(data json.RawMessage) JoinRequest {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		return JoinRequest{Name: name}
	}

	var req JoinRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return JoinRequest{}
	}

	return req
}

// parseString decodes a string payload. ok is false for a missing, null, or
// non-string payload.
func parseString(data json.RawMessage) (s string, ok bool) {
	if len(data) == 0 {
		return "", false
	}

	if err := json.Unmarshal(data, &s); err != nil {
		return "", false
	}

	return s, string(data) != "null"
}
