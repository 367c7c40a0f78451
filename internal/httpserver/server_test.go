package httpserver

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hammamikhairi/foodlens/internal/conversation"
	"github.com/hammamikhairi/foodlens/internal/dispatch"
	"github.com/hammamikhairi/foodlens/internal/domain"
	"github.com/hammamikhairi/foodlens/internal/enrich"
	"github.com/hammamikhairi/foodlens/internal/logger"
	"github.com/hammamikhairi/foodlens/internal/mailbox"
	"github.com/hammamikhairi/foodlens/internal/render"
	"github.com/hammamikhairi/foodlens/internal/session"
	"github.com/hammamikhairi/foodlens/internal/storage"
)

type nopEnricher struct{}

func (nopEnricher) Enrich(context.Context, []string, *domain.UserProfile) (*domain.Enrichment, error) {
	return nil, domain.Unreachable(context.DeadlineExceeded)
}

type fixture struct {
	srv         *Server
	sess        *session.Session
	frames      *mailbox.Frames
	transcripts *mailbox.Latest[string]
	renderer    *render.Renderer
	hub         *Hub
}

func setup(t *testing.T) *fixture {
	t.Helper()
	log := logger.New(logger.LevelOff, nil)
	grammar, err := conversation.NewGrammar(log, conversation.DefaultCommands()...)
	if err != nil {
		t.Fatalf("grammar: %v", err)
	}

	f := &fixture{
		sess:        session.New(log, session.WithID("http")),
		frames:      mailbox.NewFrames(),
		transcripts: mailbox.New[string](),
		hub:         NewHub(log),
	}
	f.renderer = render.New(log, render.WithSink(f.hub))
	store := storage.NewMemoryStore(log, domain.UserProfile{ID: "7", Name: "Lucía"})
	notifier := conversation.NewCLINotifier(log, func(string, ...interface{}) {})
	pipeline := enrich.New(f.sess, nopEnricher{}, log)
	d := dispatch.New(f.sess, grammar, pipeline, store, notifier, log)

	f.srv = New(Deps{
		Session:     f.sess,
		Frames:      f.frames,
		Transcripts: f.transcripts,
		Dispatcher:  d,
		Renderer:    f.renderer,
		Hub:         f.hub,
		Log:         log,
	})
	return f
}

func (f *fixture) do(method, path, contentType, body string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(method, path, strings.NewReader(body))
	if contentType != "" {
		r.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	f.srv.Router.ServeHTTP(w, r)
	return w
}

func TestHealthz(t *testing.T) {
	f := setup(t)
	w := f.do(http.MethodGet, "/healthz", "", "")
	if w.Code != http.StatusOK || w.Body.String() != "ok" {
		t.Fatalf("expected 200 ok, got %d %q", w.Code, w.Body.String())
	}
}

func TestPostFrame(t *testing.T) {
	img := []byte{0xff, 0xd8, 0xff, 0xe0}
	b64 := base64.StdEncoding.EncodeToString(img)

	tests := []struct {
		name        string
		contentType string
		body        string
		wantCode    int
		wantMime    string
	}{
		{"json", "application/json", `{"image":"` + b64 + `"}`, http.StatusAccepted, "image/jpeg"},
		{"data url", "application/json", `{"image":"data:image/png;base64,` + b64 + `"}`, http.StatusAccepted, "image/png"},
		{"raw body", "image/webp", string(img), http.StatusAccepted, "image/webp"},
		{"bad base64", "application/json", `{"image":"%%%"}`, http.StatusBadRequest, ""},
		{"empty", "application/json", `{"image":""}`, http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t)
			w := f.do(http.MethodPost, "/api/frames", tt.contentType, tt.body)
			if w.Code != tt.wantCode {
				t.Fatalf("expected %d, got %d: %s", tt.wantCode, w.Code, w.Body.String())
			}
			if tt.wantCode != http.StatusAccepted {
				if _, err := f.frames.Latest(); err == nil {
					t.Fatal("expected no frame to be published")
				}
				return
			}
			frame, err := f.frames.Latest()
			if err != nil {
				t.Fatalf("expected a frame, got %v", err)
			}
			if string(frame.Data) != string(img) || frame.MimeType != tt.wantMime {
				t.Fatalf("unexpected frame %q %s", frame.Data, frame.MimeType)
			}
		})
	}
}

func TestPostTranscript(t *testing.T) {
	f := setup(t)

	w := f.do(http.MethodPost, "/api/transcript", "application/json", `{"text":"  Dame recetas "}`)
	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", w.Code)
	}
	text, ok := f.transcripts.TryTake()
	if !ok || text != "Dame recetas" {
		t.Fatalf("expected queued transcript, got %q (%v)", text, ok)
	}

	w = f.do(http.MethodPost, "/api/transcript", "application/json", `{"text":""}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty transcript, got %d", w.Code)
	}
}

func TestActions(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		body     string
		wantCode int
		check    func(session.Snapshot) bool
	}{
		{"start detection", "/api/actions/start_detection", "", http.StatusOK,
			func(s session.Snapshot) bool { return s.Flags.DetectionActive && s.Flags.MenuOpen }},
		{"set name", "/api/actions/set_name", `{"payload":"Carlos"}`, http.StatusOK,
			func(s session.Snapshot) bool { return s.Registration.Name == "Carlos" }},
		{"unknown", "/api/actions/fly", "", http.StatusNotFound, nil},
		{"nothing to enrich", "/api/actions/enrich", "", http.StatusConflict, nil},
		{"incomplete registration", "/api/actions/submit_registration", "", http.StatusUnprocessableEntity, nil},
		{"favorite without profile", "/api/actions/save_favorite", "", http.StatusConflict, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t)
			ct := ""
			if tt.body != "" {
				ct = "application/json"
			}
			w := f.do(http.MethodPost, tt.path, ct, tt.body)
			if w.Code != tt.wantCode {
				t.Fatalf("expected %d, got %d: %s", tt.wantCode, w.Code, w.Body.String())
			}
			if tt.check != nil && !tt.check(f.sess.Snapshot()) {
				t.Fatalf("unexpected state %+v", f.sess.Snapshot())
			}
		})
	}
}

func TestLoadProfile(t *testing.T) {
	f := setup(t)

	w := f.do(http.MethodPost, "/api/profile/7", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	p, err := f.sess.Profile()
	if err != nil || p.Name != "Lucía" {
		t.Fatalf("expected Lucía loaded, got %+v (%v)", p, err)
	}

	w = f.do(http.MethodPost, "/api/profile/99", "", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestStateAndOverlay(t *testing.T) {
	f := setup(t)
	f.sess.StartDetection()
	f.renderer.Publish(context.Background(), f.renderer.Build(f.sess.Snapshot()))

	w := f.do(http.MethodGet, "/api/state", "", "")
	var snap session.Snapshot
	if err := json.Unmarshal(w.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decoding state: %v", err)
	}
	if snap.SessionID != "http" || !snap.Flags.DetectionActive {
		t.Fatalf("unexpected state %+v", snap)
	}

	w = f.do(http.MethodGet, "/api/overlay", "", "")
	var frame render.Frame
	if err := json.Unmarshal(w.Body.Bytes(), &frame); err != nil {
		t.Fatalf("decoding overlay: %v", err)
	}
	if frame.Version != 1 || !frame.Menu.Detecting {
		t.Fatalf("unexpected overlay %+v", frame)
	}
}

func TestWebsocketReceivesFrames(t *testing.T) {
	f := setup(t)
	ts := httptest.NewServer(f.srv.Router)
	defer ts.Close()

	f.renderer.Publish(context.Background(), render.Frame{Version: 1})

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	read := func() render.Frame {
		t.Helper()
		_ = conn.SetReadDeadline(time.Now().Add(time.Second))
		var fr render.Frame
		if err := conn.ReadJSON(&fr); err != nil {
			t.Fatalf("read: %v", err)
		}
		return fr
	}

	if got := read(); got.Version != 1 {
		t.Fatalf("expected replay of v1 on connect, got v%d", got.Version)
	}

	deadline := time.Now().Add(time.Second)
	for f.hub.Clients() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	f.renderer.Publish(context.Background(), render.Frame{Version: 2})
	if got := read(); got.Version != 2 {
		t.Fatalf("expected v2, got v%d", got.Version)
	}
}
