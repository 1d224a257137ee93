package chat

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"infra_crew/internal/tts"
	"infra_crew/src/model"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeAssistant struct {
	mu     sync.Mutex
	turns  []string
	resets []string
	err    error
}

func (f *fakeAssistant) Chat(_ context.Context, sessionID, text string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.turns = append(f.turns, sessionID+"|"+text)
	if f.err != nil {
		return "", f.err
	}
	return "```gui\nresult for " + text + "\n```\n```say\nok " + text + "\n```", nil
}

func (f *fakeAssistant) Reset(_ context.Context, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets = append(f.resets, sessionID)
	return nil
}

func (f *fakeAssistant) snapshot() ([]string, []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.turns...), append([]string(nil), f.resets...)
}

type staticSystems []string

func (s staticSystems) Available() []string { return s }
func (s staticSystems) Default() string {
	if len(s) == 0 {
		return ""
	}
	return s[0]
}

func TestParseBlocks(t *testing.T) {
	blocks := ParseBlocks("intro\n```gui\n# Title\n```\nnoise\n```say\nHello there.\n```\n```gui\n\n```")
	assert.Equal(t, []Block{
		{Kind: KindGUI, Content: "# Title"},
		{Kind: KindSay, Content: "Hello there."},
		{Kind: KindGUI, Content: ""},
	}, blocks)

	gui, say := Split(blocks)
	assert.Equal(t, "# Title", gui)
	assert.Equal(t, "Hello there.", say)

	assert.Equal(t, []Block{{Kind: KindSay, Content: "plain reply"}}, ParseBlocks("  plain reply \n"))
	assert.Nil(t, ParseBlocks("   "))
	assert.Equal(t, []Block{{Kind: KindSay, Content: "```go\nx\n```"}}, ParseBlocks("```go\nx\n```"))
}

func startRelay(t *testing.T, a Assistant) (*Relay, func()) {
	t.Helper()
	relay := NewRelay(a, staticSystems{"alpha", "beta"})
	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		relay.Run(ctx)
	}()
	return relay, func() {
		cancel()
		wg.Wait()
	}
}

func TestWorkerDrainsGUIContext(t *testing.T) {
	fa := &fakeAssistant{}
	relay := NewRelay(fa, staticSystems{"alpha"})
	sessionID, system := relay.Session()
	assert.Equal(t, "alpha", system)

	require.NoError(t, relay.HandleFrame([]byte(`{"event":"gui_context","gui_context":"[form]"}`)))
	require.NoError(t, relay.HandleFrame([]byte(`{"event":"user_input","data":"hi"}`)))
	require.NoError(t, relay.HandleFrame([]byte(`{"event":"user_input","data":"exit"}`)))

	relay.Run(context.Background())
	<-relay.Done()

	turns, _ := fa.snapshot()
	assert.Equal(t, []string{sessionID + "|hi[form]"}, turns)
}

func TestNewChatResetsSession(t *testing.T) {
	fa := &fakeAssistant{}
	relay, stop := startRelay(t, fa)
	defer stop()

	before, _ := relay.Session()
	require.NoError(t, relay.HandleFrame([]byte(`{"event":"new_chat","data":{"system":"beta"}}`)))

	assert.Eventually(t, func() bool {
		_, resets := fa.snapshot()
		return len(resets) == 1
	}, time.Second, 10*time.Millisecond)

	after, system := relay.Session()
	assert.NotEqual(t, before, after)
	assert.Equal(t, "beta", system)
	_, resets := fa.snapshot()
	assert.Equal(t, []string{before}, resets)

	require.NoError(t, relay.HandleFrame([]byte(`{"event":"new_chat","data":""}`)))
	assert.Eventually(t, func() bool {
		_, resets := fa.snapshot()
		return len(resets) == 2
	}, time.Second, 10*time.Millisecond)
	_, system = relay.Session()
	assert.Equal(t, "alpha", system)

	assert.Error(t, relay.HandleFrame([]byte(`{"event":"bogus"}`)))
	assert.Error(t, relay.HandleFrame([]byte(`nope`)))
}

func readFrame(t *testing.T, conn *websocket.Conn) Frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var f Frame
	require.NoError(t, sonic.Unmarshal(data, &f))
	return f
}

func TestWebsocketRoundTrip(t *testing.T) {
	fa := &fakeAssistant{}
	relay, stop := startRelay(t, fa)
	defer stop()

	srv := httptest.NewServer(NewServer(relay, staticSystems{"alpha"}, nil, nil).Handler())
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/chat", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"user_input","data":"build"}`)))

	assert.Equal(t, Frame{Event: EventUpdateUserInput, Data: "build"}, readFrame(t, conn))
	assert.Equal(t, Frame{Event: EventUpdateGUI, Data: "result for build"}, readFrame(t, conn))
	assert.Equal(t, Frame{Event: EventUpdateSpeech, Data: "ok build"}, readFrame(t, conn))

	fa.mu.Lock()
	fa.err = errors.New("model down")
	fa.mu.Unlock()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"user_input","data":"again"}`)))
	assert.Equal(t, EventUpdateUserInput, readFrame(t, conn).Event)
	assert.Equal(t, Frame{Event: EventUpdateSpeech, Data: "Sorry, something went wrong: model down"}, readFrame(t, conn))
}

func TestRoutes(t *testing.T) {
	fa := &fakeAssistant{}
	relay := NewRelay(fa, staticSystems{"alpha", "beta"})

	shut := make(chan struct{})
	ttsHandler := tts.NewHandler(model.TTSConfig{Model: "tts-1", Voice: "coral", Format: "mp3", CacheDir: t.TempDir()}, nil)
	srv := httptest.NewServer(NewServer(relay, staticSystems{"alpha", "beta"}, ttsHandler, func() { close(shut) }).Handler())
	defer srv.Close()

	get := func(path string) (*http.Response, string) {
		res, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		defer res.Body.Close()
		body, err := io.ReadAll(res.Body)
		require.NoError(t, err)
		return res, string(body)
	}

	res, body := get("/")
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "no-store", res.Header.Get("Cache-Control"))
	assert.Contains(t, body, "<title>infra_crew</title>")

	res, body = get("/systems")
	assert.Equal(t, "no-store", res.Header.Get("Cache-Control"))
	assert.JSONEq(t, `["alpha","beta"]`, body)

	_, body = get("/tts_config")
	assert.Contains(t, body, `"enabled":false`)

	res, err := http.Post(srv.URL+"/tts", "application/json", strings.NewReader(`{"text":"hi"}`))
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	res, body = get("/missing")
	assert.Equal(t, http.StatusNotFound, res.StatusCode)

	res, err = http.Post(srv.URL+"/shutdown", "text/plain", nil)
	require.NoError(t, err)
	body2, _ := io.ReadAll(res.Body)
	res.Body.Close()
	assert.Equal(t, "Capture ended", string(body2))
	select {
	case <-shut:
	case <-time.After(time.Second):
		t.Fatal("shutdown not triggered")
	}
}
