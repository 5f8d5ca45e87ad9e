package http

import (
	"context"
	stdhttp "net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/getsentry/sentry-go"
	"github.com/gorilla/csrf"
	"github.com/gorilla/schema"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"inkwell/app/internal/markdown"
	"inkwell/app/internal/wiki"
)

// Options configures the HTTP server wiring.
type Options struct {
	Store       wiki.Store
	Markdown    *markdown.Renderer
	Database    *gorm.DB
	Logger      *logrus.Logger
	SentryHub   *sentry.Hub
	HomePage    string
	CSRFKey     []byte
	CSRFSecure  bool
	RateLimiter RateLimiterSettings
}

// RateLimiterSettings configures the HTTP rate limiter behaviour.
type RateLimiterSettings struct {
	RequestsPerSecond float64
	Burst             int
	ClientTTL         time.Duration
}

// Server wires the browser-facing transport: huma routes for reads, plain
// mux handlers for the create/edit form, all behind the anti-forgery wrapper.
type Server struct {
	api         huma.API
	mux         *stdhttp.ServeMux
	handler     stdhttp.Handler
	store       wiki.Store
	markdown    *markdown.Renderer
	views       *viewRenderer
	decoder     *schema.Decoder
	logger      *logrus.Logger
	sentry      *sentry.Hub
	db          *gorm.DB
	homePage    string
	rateLimiter *RateLimiter
}

// NewServer constructs the HTTP server.
func NewServer(opts Options) (*Server, error) {
	if opts.Store == nil {
		return nil, eris.New("page store is required")
	}
	if opts.Markdown == nil {
		return nil, eris.New("markdown renderer is required")
	}
	if opts.Database == nil {
		return nil, eris.New("database is required")
	}
	if len(opts.CSRFKey) == 0 {
		return nil, eris.New("CSRF key is required")
	}

	homePage := wiki.NormalizeName(opts.HomePage)
	if homePage == "" {
		return nil, eris.New("home page name is required")
	}

	views, err := newViewRenderer()
	if err != nil {
		return nil, eris.Wrap(err, "parsing view templates")
	}

	decoder := schema.NewDecoder()
	decoder.IgnoreUnknownKeys(true)
	decoder.ZeroEmpty(true)

	mux := stdhttp.NewServeMux()
	config := huma.DefaultConfig("Inkwell", "1.0.0")

	api := humago.New(mux, config)

	srv := &Server{
		api:      api,
		mux:      mux,
		store:    opts.Store,
		markdown: opts.Markdown,
		views:    views,
		decoder:  decoder,
		logger:   opts.Logger,
		sentry:   opts.SentryHub,
		db:       opts.Database,
		homePage: homePage,
	}

	settings := opts.RateLimiter
	if settings.Burst <= 0 {
		return nil, eris.New("rate limiter burst must be greater than zero")
	}
	if settings.RequestsPerSecond <= 0 {
		return nil, eris.New("rate limiter requests per second must be greater than zero")
	}
	if settings.ClientTTL <= 0 {
		return nil, eris.New("rate limiter client TTL must be greater than zero")
	}

	srv.rateLimiter = NewRateLimiter(settings.Burst, settings.RequestsPerSecond, settings.ClientTTL)

	srv.registerMiddlewares()
	srv.registerRoutes()

	srv.handler = csrf.Protect(
		opts.CSRFKey,
		csrf.Secure(opts.CSRFSecure),
		csrf.Path("/"),
	)(mux)

	return srv, nil
}

// Handler exposes the underlying HTTP handler for wiring into the application.
func (s *Server) Handler() stdhttp.Handler {
	return s.handler
}

// API exposes the underlying Huma API instance.
func (s *Server) API() huma.API {
	return s.api
}

// Close releases background resources held by the transport, currently the
// rate limiter's janitor goroutine.
func (s *Server) Close() {
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}
}

func (s *Server) registerMiddlewares() {
	s.api.UseMiddleware(
		s.sentryMiddleware(),
		s.recoveryMiddleware(),
		s.requestIDMiddleware(),
		s.rateLimitMiddleware(),
		s.loggingMiddleware(),
	)
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /favicon.ico", faviconHandler)
	s.mux.HandleFunc("HEAD /favicon.ico", faviconHandler)

	s.mux.Handle("GET /new", s.formMiddleware(s.newFormHandler))
	s.mux.Handle("GET /edit/{name}", s.formMiddleware(s.editFormHandler))
	s.mux.Handle("POST /save", s.formMiddleware(s.saveHandler))

	s.registerHomeRoute()
	s.registerPageRoute()
	s.registerListRoute()
	s.registerHealthRoute()
}

func (s *Server) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) recordError(ctx context.Context, err error, message string, fields logrus.Fields) {
	if err == nil {
		return
	}

	if s.logger != nil {
		entry := s.logger.WithField("error", err.Error())
		if len(fields) > 0 {
			entry = entry.WithFields(fields)
		}
		if requestID := RequestIDFromContext(ctx); requestID != "" {
			entry = entry.WithField("request_id", requestID)
		}
		entry.Error(message)
	}

	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		hub.CaptureException(err)
	} else if s.sentry != nil {
		s.sentry.CaptureException(err)
	}
}
