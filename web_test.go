package main

import (
	"bytes"
	"context"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Seednode/bingobox/bingo"
	"github.com/Seednode/bingobox/snapshot"
)

func newTestServer(t *testing.T, cfg *Config) *httptest.Server {
	t.Helper()

	errs := make(chan error, 8)
	hub := bingo.NewHub(nil, nil, nil)

	srv := httptest.NewServer(newRouter(cfg, hub, errs))
	t.Cleanup(srv.Close)

	return srv
}

func get(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()

	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp, body
}

func TestPlainRoutes(t *testing.T) {
	cfg := &Config{prefix: "/party"}
	srv := newTestServer(t, cfg)

	resp, body := get(t, srv.URL+"/party/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Ok\n", string(body))
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))

	resp, body = get(t, srv.URL+"/party/version")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "bingobox v"+releaseVersion+"\n", string(body))

	resp, body = get(t, srv.URL+"/party/robots.txt")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "User-agent: GPTBot")

	resp, _ = get(t, srv.URL+"/healthz")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestProfileRoutesAreOptional(t *testing.T) {
	resp, _ := get(t, newTestServer(t, &Config{}).URL+"/pprof/heap")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = get(t, newTestServer(t, &Config{profile: true}).URL+"/pprof/heap")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestQRCode(t *testing.T) {
	srv := newTestServer(t, &Config{})

	resp, body := get(t, srv.URL+"/bingo/qr")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))

	img, err := png.Decode(bytes.NewReader(body))
	require.NoError(t, err)
	assert.Equal(t, 320, img.Bounds().Dx())
}

func TestJoinURL(t *testing.T) {
	cases := []struct {
		name    string
		cfg     Config
		forward string
		want    string
	}{
		{name: "plain", want: "http://example.com/bingo"},
		{name: "prefix", cfg: Config{prefix: "/party"}, want: "http://example.com/party/bingo"},
		{name: "tls config", cfg: Config{tlsCert: "c", tlsKey: "k"}, want: "https://example.com/bingo"},
		{name: "behind proxy", forward: "https", want: "https://example.com/bingo"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "http://example.com/bingo/qr", nil)
			if tc.forward != "" {
				r.Header.Set("X-Forwarded-Proto", tc.forward)
			}

			assert.Equal(t, tc.want, joinURL(&tc.cfg, r, "/bingo"))
		})
	}
}

func TestLoadSession(t *testing.T) {
	ctx := context.Background()
	cfg := &Config{}

	store := snapshot.NewMemory()
	assert.Nil(t, loadSession(ctx, cfg, store).Info())

	snap := snapshot.New()
	snap.CurrentGameID = "g1"
	snap.Game = &snapshot.Game{Theme: "80s", Calls: []string{"A", "B"}}
	require.NoError(t, store.Save(ctx, snap))

	info := loadSession(ctx, cfg, store).Info()
	require.NotNil(t, info)
	assert.Equal(t, bingo.GameInfo{GameID: "g1", Theme: "80s"}, *info)
}

func TestLoadSessionFallsBackOnCorruptStore(t *testing.T) {
	path := t.TempDir() + "/session.json"
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	assert.Nil(t, loadSession(context.Background(), &Config{}, snapshot.NewFile(path)).Info())
}

func TestHumanReadableSize(t *testing.T) {
	cases := map[int64]string{
		0:         "0 B",
		999:       "999 B",
		1000:      "1.0 kB",
		1_500_000: "1.5 MB",
	}

	for in, want := range cases {
		assert.Equal(t, want, humanReadableSize(in))
	}
}

func TestReportErrDoesNotBlock(t *testing.T) {
	errs := make(chan error, 1)

	reportErr(errs, io.ErrUnexpectedEOF)
	reportErr(errs, io.ErrClosedPipe)

	assert.Equal(t, io.ErrUnexpectedEOF, <-errs)
	assert.Empty(t, errs)
}

func TestRunGameFlushesFinalSnapshot(t *testing.T) {
	store := snapshot.NewMemory()
	writer := snapshot.NewWriter(store, nil)
	hub := bingo.NewHub(nil, writer, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- runGame(ctx, hub, writer) }()

	srv := httptest.NewServer(newRouter(&Config{sendBuffer: 64}, hub, make(chan error, 8)))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/bingo/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(map[string]any{
		"event": bingo.EvtStartGame,
		"data":  bingo.Theme{Name: "80s", Songs: []string{"A", "B", "C"}},
	}))

	var gameID string
	for gameID == "" {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

		var m struct {
			Event string          `json:"event"`
			Data  *bingo.GameInfo `json:"data"`
		}
		require.NoError(t, conn.ReadJSON(&m))
		if m.Event == bingo.EvtGameInfo && m.Data != nil {
			gameID = m.Data.GameID
		}
	}

	// Stop while the hub may still be finishing the start-game event.
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("runGame did not return")
	}

	snap, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, gameID, snap.CurrentGameID)
}
