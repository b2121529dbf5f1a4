package server

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func servePublic(t *testing.T) *httptest.Server {
	t.Helper()
	dir := t.TempDir()
	page := filepath.Join(dir, "lecture-notes", "pointers")
	require.NoError(t, os.MkdirAll(page, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(page, "index.html"), []byte("<html><body>Pointers</body></html>"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "style.css"), []byte("body{}"), 0644))

	srv := httptest.NewServer(withLiveReload(http.FileServer(http.Dir(dir))))
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestLiveReloadInjectsScript(t *testing.T) {
	srv := servePublic(t)

	resp, body := get(t, srv.URL+"/lecture-notes/pointers/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, "new WebSocket")
	require.True(t, strings.HasSuffix(body, "</script>\n</body></html>"))
	require.Equal(t, "no-cache, no-store, must-revalidate", resp.Header.Get("Cache-Control"))
}

func TestLiveReloadFollowsDirectoryRedirect(t *testing.T) {
	srv := servePublic(t)

	resp, body := get(t, srv.URL+"/lecture-notes/pointers")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "/lecture-notes/pointers/", resp.Request.URL.Path)
	require.Contains(t, body, "new WebSocket")
}

func TestLiveReloadLeavesAssetsAlone(t *testing.T) {
	srv := servePublic(t)

	_, body := get(t, srv.URL+"/style.css")
	require.Equal(t, "body{}", body)

	resp, body := get(t, srv.URL+"/missing/")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.NotContains(t, body, "WebSocket")
}

func TestInjectReloadScript(t *testing.T) {
	got := string(injectReloadScript([]byte("<p>a</body></p></body>")))
	require.Equal(t, "<p>a</body></p>"+liveReloadScript+"</body>", got)

	got = string(injectReloadScript([]byte("<p>fragment</p>")))
	require.Equal(t, "<p>fragment</p>"+liveReloadScript, got)
}

func TestReloadHub(t *testing.T) {
	hub := newReloadHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.size() == 1 }, time.Second, 10*time.Millisecond)

	hub.reload()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	kind, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, websocket.TextMessage, kind)
	require.Equal(t, reloadMessage, string(msg))

	conn.Close()
	require.Eventually(t, func() bool { return hub.size() == 0 }, time.Second, 10*time.Millisecond)
}

func TestReloadHubClose(t *testing.T) {
	hub := newReloadHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return hub.size() == 1 }, time.Second, 10*time.Millisecond)

	hub.close()
	require.Equal(t, 0, hub.size())
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	_, _, err = conn.ReadMessage()
	require.Error(t, err)
}
