package bingo

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseJoin(t *testing.T) {
	cases := []struct {
		name string
		data string
		want JoinRequest
	}{
		{name: "bare name", data: `"Alice"`, want: JoinRequest{Name: "Alice"}},
		{name: "object", data: `{"name":"Alice"}`, want: JoinRequest{Name: "Alice"}},
		{name: "resume", data: `{"name":"Alice","resume":true}`, want: JoinRequest{Name: "Alice", Resume: true}},
		{name: "null", data: `null`, want: JoinRequest{}},
		{name: "empty", data: ``, want: JoinRequest{}},
		{name: "number", data: `7`, want: JoinRequest{}},
		{name: "bad resume type", data: `{"name":"Alice","resume":"yes"}`, want: JoinRequest{}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, parseJoin(json.RawMessage(tc.data)))
		})
	}
}

func TestParseString(t *testing.T) {
	cases := []struct {
		data   string
		want   string
		wantOK bool
	}{
		{data: `"A"`, want: "A", wantOK: true},
		{data: `""`, want: "", wantOK: true},
		{data: `null`, want: "", wantOK: false},
		{data: ``, want: "", wantOK: false},
		{data: `{"x":1}`, want: "", wantOK: false},
	}

	for _, tc := range cases {
		got, ok := parseString(json.RawMessage(tc.data))
		assert.Equal(t, tc.want, got, tc.data)
		assert.Equal(t, tc.wantOK, ok, tc.data)
	}
}

func TestMessageEncoding(t *testing.T) {
	data, err := json.Marshal(Message{Event: EvtGameInfo, Data: (*GameInfo)(nil)})
	assert.NoError(t, err)
	assert.JSONEq(t, `{"event":"game-info","data":null}`, string(data))

	data, err = json.Marshal(Message{Event: EvtGameInfo, Data: &GameInfo{GameID: "g1", Theme: "80s"}})
	assert.NoError(t, err)
	assert.JSONEq(t, `{"event":"game-info","data":{"gameId":"g1","theme":"80s"}}`, string(data))
}
