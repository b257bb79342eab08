package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/harness/internal/config"
	"github.com/conneroisu/harness/internal/errors"
	"github.com/conneroisu/harness/internal/registry"
)

var sessionAttr = regexp.MustCompile(`data-session="([^"]+)"`)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	srv := New(config.Default(), registry.Builtin(), nil)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		_ = srv.Shutdown(context.Background())
	})
	return srv, ts
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

// openFixture loads the fixture page and returns its session id.
func openFixture(t *testing.T, ts *httptest.Server, name string) string {
	t.Helper()
	code, body := get(t, ts.URL+"/fixtures/"+name)
	require.Equal(t, http.StatusOK, code)
	m := sessionAttr.FindStringSubmatch(body)
	require.Len(t, m, 2, "page carries a session id")
	return m[1]
}

func dial(t *testing.T, ctx context.Context, ts *httptest.Server, session string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?session=" + session
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

// readUntil reads server messages until one satisfies match.
func readUntil(t *testing.T, ctx context.Context, conn *websocket.Conn, match func(ServerMessage) bool) ServerMessage {
	t.Helper()
	for {
		var msg ServerMessage
		require.NoError(t, wsjson.Read(ctx, conn, &msg))
		if match(msg) {
			return msg
		}
	}
}

func TestFixturesAPI(t *testing.T) {
	_, ts := newTestServer(t)

	code, body := get(t, ts.URL+"/api/fixtures")
	require.Equal(t, http.StatusOK, code)

	var fixtures []fixtureSummary
	require.NoError(t, json.Unmarshal([]byte(body), &fixtures))
	names := make([]string, len(fixtures))
	for i, f := range fixtures {
		names[i] = f.Name
	}
	assert.Equal(t, []string{"buttons", "cards", "checkboxes", "delayed", "sliders", "toggles"}, names)
	assert.Equal(t, []string{"CardHarness", "ButtonHarness"}, fixtures[1].Harnesses)
}

func TestIndexAndHealth(t *testing.T) {
	srv, ts := newTestServer(t)

	code, body := get(t, ts.URL+"/")
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, `<a href="/fixtures/sliders">sliders</a>`)

	openFixture(t, ts, "sliders")
	assert.Equal(t, 1, srv.SessionCount())

	code, body = get(t, ts.URL+"/health")
	require.Equal(t, http.StatusOK, code)
	var health map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &health))
	assert.Equal(t, "healthy", health["status"])
	assert.EqualValues(t, 6, health["fixtures"])
	assert.EqualValues(t, 1, health["sessions"])
}

func TestFixturePage(t *testing.T) {
	_, ts := newTestServer(t)

	code, body := get(t, ts.URL+"/fixtures/cards")
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, `data-fixture="cards"`)
	assert.Contains(t, body, `<div id="`+RootID+`"><div class="ui-page" data-ui-key="cards">`)
	assert.Contains(t, body, "Shiba Inu")
	assert.Contains(t, body, "window."+PendingGlobal)

	code, _ = get(t, ts.URL+"/fixtures/missing")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestNewSessionUnknownFixture(t *testing.T) {
	srv := New(config.Default(), registry.Builtin(), nil)
	_, err := srv.NewSession(context.Background(), "missing")
	assert.True(t, errors.Is(err, errors.ErrNoMatch))
}

func TestNewSessionRejectsUnknownMode(t *testing.T) {
	cfg := config.Default()
	cfg.Stabilize.Mode = "sometimes"
	srv := New(cfg, registry.Builtin(), nil)
	_, err := srv.NewSession(context.Background(), "buttons")
	assert.Error(t, err)
	assert.Zero(t, srv.SessionCount())
}

func TestWebSocketClick(t *testing.T) {
	_, ts := newTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	id := openFixture(t, ts, "buttons")
	conn := dial(t, ctx, ts, id)

	var hello ServerMessage
	require.NoError(t, wsjson.Read(ctx, conn, &hello))
	assert.Equal(t, MessageHello, hello.Type)
	assert.Equal(t, id, hello.Session)

	initial := readUntil(t, ctx, conn, func(m ServerMessage) bool { return m.Initial })
	assert.Contains(t, initial.HTML, `data-clicks="0"`)

	// [0 0] is the first button inside the page element.
	require.NoError(t, wsjson.Write(ctx, conn, ClientMessage{Type: "event", Event: "click", Path: []int{0, 0}, Seq: 1}))
	ack := readUntil(t, ctx, conn, func(m ServerMessage) bool { return m.Ack == 1 })
	assert.Equal(t, MessageRender, ack.Type)
	assert.Contains(t, ack.HTML, `data-clicks="1"`)
	assert.Zero(t, ack.Pending)
}

func TestWebSocketInvalidPath(t *testing.T) {
	_, ts := newTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dial(t, ctx, ts, openFixture(t, ts, "buttons"))
	readUntil(t, ctx, conn, func(m ServerMessage) bool { return m.Initial })

	require.NoError(t, wsjson.Write(ctx, conn, ClientMessage{Type: "event", Event: "click", Path: []int{0, 42}, Seq: 7}))
	reply := readUntil(t, ctx, conn, func(m ServerMessage) bool { return m.Ack == 7 })
	assert.Equal(t, MessageError, reply.Type)
	assert.Contains(t, reply.Error, "element path")

	require.NoError(t, wsjson.Write(ctx, conn, ClientMessage{Type: "resize", Seq: 8}))
	reply = readUntil(t, ctx, conn, func(m ServerMessage) bool { return m.Ack == 8 })
	assert.Equal(t, MessageError, reply.Type)
}

func TestWebSocketCheckboxClick(t *testing.T) {
	_, ts := newTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dial(t, ctx, ts, openFixture(t, ts, "checkboxes"))
	readUntil(t, ctx, conn, func(m ServerMessage) bool { return m.Initial })

	// page > checkbox > label > input, carrying the pre-click state.
	unchecked := false
	require.NoError(t, wsjson.Write(ctx, conn, ClientMessage{
		Type: "event", Event: "click", Path: []int{0, 0, 0, 0}, Seq: 1, Checked: &unchecked,
	}))
	// The ack and the render that follows the indeterminate reset can
	// arrive in either order.
	var acked, resolved bool
	for !acked || !resolved {
		var msg ServerMessage
		require.NoError(t, wsjson.Read(ctx, conn, &msg))
		if msg.Ack == 1 {
			acked = true
			require.Equal(t, MessageRender, msg.Type)
			assert.Contains(t, firstCheckbox(msg.HTML), "ui-checkbox-checked")
		}
		if strings.Contains(firstCheckbox(msg.HTML), `aria-checked="true"`) {
			resolved = true
		}
	}
}

func firstCheckbox(markup string) string {
	if i := strings.Index(markup, "ui-checkbox-label"); i >= 0 {
		return markup[:i]
	}
	return ""
}

func TestWebSocketDelayedTask(t *testing.T) {
	_, ts := newTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dial(t, ctx, ts, openFixture(t, ts, "delayed"))
	readUntil(t, ctx, conn, func(m ServerMessage) bool { return m.Initial })

	require.NoError(t, wsjson.Write(ctx, conn, ClientMessage{Type: "event", Event: "click", Path: []int{0, 0, 0}, Seq: 1}))
	readUntil(t, ctx, conn, func(m ServerMessage) bool {
		return m.Pending == 0 && strings.Contains(m.HTML, `class="ui-delayed done"`)
	})
}

func TestSecondAttachRejected(t *testing.T) {
	_, ts := newTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	id := openFixture(t, ts, "buttons")
	conn := dial(t, ctx, ts, id)
	readUntil(t, ctx, conn, func(m ServerMessage) bool { return m.Initial })

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?session=" + id
	_, resp, err := websocket.Dial(ctx, url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	_, resp, err = websocket.Dial(ctx, strings.Replace(url, id, "nope", 1), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRemovedFixtureClosesSessions(t *testing.T) {
	reg := registry.Builtin()
	srv := New(config.Default(), reg, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := srv.NewSession(ctx, "delayed")
	require.NoError(t, err)
	_, err = srv.NewSession(ctx, "buttons")
	require.NoError(t, err)

	go srv.watchRegistry(ctx, reg.Watch())
	reg.Remove("delayed")
	require.Eventually(t, func() bool { return srv.SessionCount() == 1 }, time.Second, 10*time.Millisecond)
}
