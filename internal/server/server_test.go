package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"canvas-cli/internal/engine"
	"canvas-cli/internal/metrics"
	"canvas-cli/internal/model"
	"canvas-cli/internal/store"
)

func newTestServer(t *testing.T, assets string) (*httptest.Server, *engine.Engine) {
	t.Helper()
	reg := prometheus.NewRegistry()
	eng := engine.New(store.NewState(model.EmptyDocument()), engine.Options{Metrics: metrics.New(reg)})
	srv, err := New(eng, Config{Addr: "127.0.0.1:0", AssetsDir: assets, Gatherer: reg})
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, eng
}

func postCommand(t *testing.T, ts *httptest.Server, name, body string) (int, CommandResponse) {
	t.Helper()
	resp, err := http.Post(ts.URL+"/commands/"+name, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	var out CommandResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestNew_RequiresAddr(t *testing.T) {
	eng := engine.New(store.NewState(model.EmptyDocument()), engine.Options{})
	_, err := New(eng, Config{})
	require.Error(t, err)
}

func TestHealth(t *testing.T) {
	ts, _ := newTestServer(t, "")
	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "ok\n", string(b))
}

func TestDispatchOverHTTP(t *testing.T) {
	ts, eng := newTestServer(t, "")

	code, out := postCommand(t, ts, "createItem", `{"type":"note","name":"Ideas"}`)
	require.Equal(t, http.StatusOK, code)
	require.NotNil(t, out.Result)
	require.Equal(t, engine.ResultID, out.Result.Kind)
	require.Equal(t, "0001", out.Result.Value)
	require.Equal(t, "created:0001", out.LastAction)

	code, _ = postCommand(t, ts, "setGlobalTitle", `{"title":"Q3"}`)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "Q3", eng.Snapshot().GlobalTitle)

	code, out = postCommand(t, ts, "noSuchCommand", `{}`)
	require.Equal(t, http.StatusNotFound, code)
	require.Contains(t, out.Error, "unknown command")

	code, out = postCommand(t, ts, "createItem", `{"type":"spaceship"}`)
	require.Equal(t, http.StatusBadRequest, code)
	require.Contains(t, out.Error, "invalid item type")

	code, _ = postCommand(t, ts, "createItem", `not json`)
	require.Equal(t, http.StatusBadRequest, code)
}

func TestStateAndDigest(t *testing.T) {
	ts, _ := newTestServer(t, "")
	postCommand(t, ts, "createItem", `{"type":"project","name":"Launch"}`)

	resp, err := http.Get(ts.URL + "/state")
	require.NoError(t, err)
	var doc model.Document
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&doc))
	resp.Body.Close()
	require.Len(t, doc.Items, 1)
	require.Equal(t, model.ItemTypeProject, doc.Items[0].Type)

	resp, err = http.Get(ts.URL + "/digest")
	require.NoError(t, err)
	b, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.Contains(t, string(b), "CURRENT STATE:")
	require.Contains(t, string(b), `name="Launch"`)
}

func TestReset(t *testing.T) {
	ts, eng := newTestServer(t, "")
	postCommand(t, ts, "createItem", `{"type":"note"}`)
	require.Len(t, eng.Snapshot().Items, 1)

	resp, err := http.Post(ts.URL+"/reset", "application/json", nil)
	require.NoError(t, err)
	var doc model.Document
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&doc))
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Empty(t, doc.Items)

	_, out := postCommand(t, ts, "createItem", `{"type":"note","name":"Fresh"}`)
	require.Equal(t, "0001", out.Result.Value)
}

func TestCommandsListing(t *testing.T) {
	ts, eng := newTestServer(t, "")
	resp, err := http.Get(ts.URL + "/commands")
	require.NoError(t, err)
	defer resp.Body.Close()
	var cmds []engine.Command
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&cmds))
	require.Len(t, cmds, len(eng.Commands()))
	require.Equal(t, "setGlobalTitle", cmds[0].Name)
}

func TestMetricsAndAssets(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.png"), []byte("png"), 0o644))
	ts, _ := newTestServer(t, dir)
	postCommand(t, ts, "createItem", `{"type":"note"}`)

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	b, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.Contains(t, string(b), "canvas_commands_total")

	resp, err = http.Get(ts.URL + "/assets/a.png")
	require.NoError(t, err)
	b, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, bytes.Equal(b, []byte("png")))
}

func dialWS(t *testing.T, ts *httptest.Server) (*websocket.Conn, *frameReader) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn, &frameReader{t: t, conn: conn}
}

// frameReader hands out frames by type. Frames of other types are kept for
// later calls, since state pushes and results interleave freely.
type frameReader struct {
	t       *testing.T
	conn    *websocket.Conn
	pending []CommandResponse
}

func (r *frameReader) next(typ string, match func(CommandResponse) bool) CommandResponse {
	r.t.Helper()
	wanted := func(f CommandResponse) bool { return f.Type == typ && (match == nil || match(f)) }
	for i, f := range r.pending {
		if wanted(f) {
			r.pending = slices.Delete(r.pending, i, i+1)
			return f
		}
	}
	require.NoError(r.t, r.conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		var f CommandResponse
		require.NoError(r.t, r.conn.ReadJSON(&f))
		if wanted(f) {
			return f
		}
		r.pending = append(r.pending, f)
	}
}

func stateItems(f CommandResponse) int {
	var d model.Document
	if err := json.Unmarshal(f.State, &d); err != nil {
		return -1
	}
	return len(d.Items)
}

func TestWebsocket_CommandsAndStatePush(t *testing.T) {
	ts, _ := newTestServer(t, "")
	conn, frames := dialWS(t, ts)

	initial := frames.next("state", nil)
	require.Equal(t, 0, stateItems(initial))

	require.NoError(t, conn.WriteJSON(map[string]any{
		"id":      "req-1",
		"command": "createItem",
		"args":    map[string]any{"type": "chart", "name": "KPIs"},
	}))
	res := frames.next("result", nil)
	require.Equal(t, "req-1", res.ID)
	require.Equal(t, "0001", res.Result.Value)
	require.Equal(t, "created:0001", res.LastAction)

	pushed := frames.next("state", func(f CommandResponse) bool { return stateItems(f) == 1 })
	require.NotEmpty(t, pushed.State)
}

func TestFrameReader_KeepsOtherFrameTypes(t *testing.T) {
	ts, _ := newTestServer(t, "")
	conn, frames := dialWS(t, ts)
	frames.next("state", nil)

	require.NoError(t, conn.WriteJSON(map[string]any{
		"id": "n", "command": "createItem", "args": map[string]any{"type": "note"},
	}))
	// Wait for the pushed state first; the result frame may precede it and
	// must still be available afterwards.
	frames.next("state", func(f CommandResponse) bool { return stateItems(f) == 1 })
	res := frames.next("result", nil)
	require.Equal(t, "n", res.ID)
	require.Equal(t, "0001", res.Result.Value)
}

func TestWebsocket_AssignsRequestIDAndReportsErrors(t *testing.T) {
	ts, _ := newTestServer(t, "")
	conn, frames := dialWS(t, ts)

	require.NoError(t, conn.WriteJSON(map[string]any{"command": "bogus"}))
	res := frames.next("result", nil)
	require.NotEmpty(t, res.ID)
	require.Contains(t, res.Error, "unknown command")
	require.Nil(t, res.Result)

	// A malformed frame is answered and the session stays open.
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	res = frames.next("result", nil)
	require.Contains(t, res.Error, "invalid frame")

	require.NoError(t, conn.WriteJSON(map[string]any{"id": "after", "command": "setGlobalTitle", "args": map[string]any{"title": "x"}}))
	res = frames.next("result", nil)
	require.Equal(t, "after", res.ID)
	require.Empty(t, res.Error)
}

func TestWebsocket_GenerationDoesNotHoldStream(t *testing.T) {
	ts, _ := newTestServer(t, "")
	conn, frames := dialWS(t, ts)

	require.NoError(t, conn.WriteJSON(map[string]any{
		"id": "gen", "command": "generateCharacterImage", "args": map[string]any{"itemId": "9999"},
	}))
	require.NoError(t, conn.WriteJSON(map[string]any{
		"id": "title", "command": "setGlobalTitle", "args": map[string]any{"title": "Cast"},
	}))

	seen := map[string]CommandResponse{}
	for len(seen) < 2 {
		f := frames.next("result", nil)
		seen[f.ID] = f
	}
	require.Equal(t, engine.ResultStatus, seen["gen"].Result.Kind)
	require.Contains(t, seen["gen"].Result.Value, "not found")
	require.Equal(t, engine.ResultNone, seen["title"].Result.Kind)
}
