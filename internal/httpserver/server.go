// Package httpserver exposes the session over HTTP: frames and transcripts
// come in, actions are applied, and rendered overlays stream out over a
// websocket.
package httpserver

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/hammamikhairi/foodlens/internal/dispatch"
	"github.com/hammamikhairi/foodlens/internal/domain"
	"github.com/hammamikhairi/foodlens/internal/logger"
	"github.com/hammamikhairi/foodlens/internal/mailbox"
	"github.com/hammamikhairi/foodlens/internal/render"
	"github.com/hammamikhairi/foodlens/internal/session"
)

// maxFrameBytes bounds an uploaded camera frame.
const maxFrameBytes = 8 << 20

// Deps are the collaborators the handlers need.
type Deps struct {
	Session     *session.Session
	Frames      *mailbox.Frames
	Transcripts *mailbox.Latest[string]
	Dispatcher  *dispatch.Dispatcher
	Renderer    *render.Renderer
	Hub         *Hub
	Log         *logger.Logger
}

// Server bundles the router and its dependencies.
type Server struct {
	Router *echo.Echo
	deps   Deps
	log    *logger.Logger
}

// New creates a configured Echo server with every route registered.
func New(d Deps) *Server {
	log := d.Log.With("component", "http")

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error != nil {
				log.Warn("%s %s -> %d (%s): %v", v.Method, v.URI, v.Status, v.Latency, v.Error)
				return nil
			}
			log.Debug("%s %s -> %d (%s)", v.Method, v.URI, v.Status, v.Latency)
			return nil
		},
	}))
	e.Use(middleware.CORS())

	s := &Server{Router: e, deps: d, log: log}
	s.register(e)
	return s
}

func (s *Server) register(e *echo.Echo) {
	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.GET("/ws", s.websocket)

	api := e.Group("/api")
	api.GET("/state", s.state)
	api.GET("/overlay", s.overlay)
	api.POST("/frames", s.frame)
	api.POST("/transcript", s.transcript)
	api.POST("/actions/:name", s.action)
	api.POST("/profile/:id", s.profile)
}

// Start listens on addr. It returns http.ErrServerClosed after Shutdown.
func (s *Server) Start(addr string) error {
	s.log.Info("listening on %s", addr)
	return s.Router.Start(addr)
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.Router.Shutdown(ctx)
}

func (s *Server) websocket(c echo.Context) error {
	if err := s.deps.Hub.Serve(c.Response(), c.Request()); err != nil {
		s.log.Warn("ws upgrade: %v", err)
	}
	return nil
}

func (s *Server) state(c echo.Context) error {
	return c.JSON(http.StatusOK, s.deps.Session.Snapshot())
}

func (s *Server) overlay(c echo.Context) error {
	return c.JSON(http.StatusOK, s.deps.Renderer.Latest())
}

type frameRequest struct {
	Image    string `json:"image"`
	MimeType string `json:"mimeType"`
}

type frameResponse struct {
	ID uint64 `json:"id"`
}

// frame accepts either a raw image body or JSON {image: base64}. A
// data-URL prefix on the base64 payload is stripped.
func (s *Server) frame(c echo.Context) error {
	req := c.Request()
	ct := req.Header.Get(echo.HeaderContentType)

	var (
		data []byte
		mime string
		err  error
	)
	if strings.HasPrefix(ct, "image/") {
		data, err = io.ReadAll(io.LimitReader(req.Body, maxFrameBytes))
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "reading frame")
		}
		mime = ct
	} else {
		var in frameRequest
		if err := c.Bind(&in); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid frame payload")
		}
		data, mime, err = decodeImage(in)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
	}
	if len(data) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "empty frame")
	}

	id := s.deps.Frames.Publish(data, mime)
	return c.JSON(http.StatusAccepted, frameResponse{ID: id})
}

func decodeImage(in frameRequest) ([]byte, string, error) {
	payload := in.Image
	mime := in.MimeType
	if strings.HasPrefix(payload, "data:") {
		head, body, ok := strings.Cut(payload, ",")
		if !ok {
			return nil, "", errors.New("malformed data URL")
		}
		payload = body
		if mime == "" {
			mime = strings.TrimSuffix(strings.TrimPrefix(head, "data:"), ";base64")
		}
	}
	if mime == "" {
		mime = "image/jpeg"
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", errors.New("image is not valid base64")
	}
	return data, mime, nil
}

type transcriptRequest struct {
	Text string `json:"text"`
}

func (s *Server) transcript(c echo.Context) error {
	var in transcriptRequest
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid transcript payload")
	}
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "empty transcript")
	}
	s.deps.Transcripts.Put(text)
	return c.NoContent(http.StatusAccepted)
}

type actionRequest struct {
	Payload string `json:"payload"`
}

type actionResponse struct {
	Intent  string `json:"intent"`
	Version uint64 `json:"version"`
}

// action applies a named intent, the same way a voice command would.
func (s *Server) action(c echo.Context) error {
	name := c.Param("name")
	t := domain.IntentFromString(name)
	if t == domain.IntentUnknown {
		return echo.NewHTTPError(http.StatusNotFound, "unknown action "+name)
	}

	var in actionRequest
	if c.Request().ContentLength > 0 {
		if err := c.Bind(&in); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid action payload")
		}
	}

	intent := &domain.Intent{Type: t, Payload: strings.TrimSpace(in.Payload)}
	if err := s.deps.Dispatcher.Apply(c.Request().Context(), intent); err != nil {
		return echo.NewHTTPError(statusFor(err), err.Error())
	}
	return c.JSON(http.StatusOK, actionResponse{
		Intent:  t.String(),
		Version: s.deps.Session.Snapshot().Version,
	})
}

func (s *Server) profile(c echo.Context) error {
	p, err := s.deps.Dispatcher.LoadProfile(c.Request().Context(), c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(statusFor(err), err.Error())
	}
	return c.JSON(http.StatusOK, p)
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrEnrichmentInFlight),
		errors.Is(err, domain.ErrNothingToEnrich),
		errors.Is(err, domain.ErrNoProfile),
		errors.Is(err, domain.ErrNoRecipe):
		return http.StatusConflict
	case errors.Is(err, domain.ErrRegistrationIncomplete):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrProfileService),
		errors.Is(err, domain.ErrUnreachable),
		errors.Is(err, domain.ErrMalformedResponse):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
