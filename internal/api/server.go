package api

import (
	"context"
	"encoding/base64"
	"log/slog"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/smazurov/boardnode/internal/api/models"
	"github.com/smazurov/boardnode/internal/board"
	"github.com/smazurov/boardnode/internal/device"
	"github.com/smazurov/boardnode/internal/events"
	"github.com/smazurov/boardnode/internal/led"
	"github.com/smazurov/boardnode/internal/logging"
	"github.com/smazurov/boardnode/internal/speaker"
	"github.com/smazurov/boardnode/internal/version"
)

const authRealm = `Basic realm="boardnode API"`

// BoardService is the part of the board the API drives. *board.Board
// satisfies it.
type BoardService interface {
	Bank() *led.Bank
	Speaker() *speaker.Speaker
	Devices() *device.Registry
	Press(name string) error
	Info() (board.Info, error)
}

// Server is the Huma v2 API server.
type Server struct {
	api        huma.API
	mux        *http.ServeMux
	httpServer *http.Server
	board      BoardService
	eventBus   *events.Bus
	options    *Options
	logger     *slog.Logger
}

// basicAuthMiddleware creates middleware for HTTP basic authentication
func (s *Server) basicAuthMiddleware(username, password string) func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		// Skip auth for operations without security requirements
		op := ctx.Operation()
		if op != nil && len(op.Security) == 0 {
			next(ctx)
			return
		}

		var credentials string
		if authHeader := ctx.Header("Authorization"); authHeader != "" {
			const prefix = "Basic "
			if !strings.HasPrefix(authHeader, prefix) {
				s.unauthorized(ctx, "Invalid authentication type")
				return
			}
			decoded, err := base64.StdEncoding.DecodeString(authHeader[len(prefix):])
			if err != nil {
				s.unauthorized(ctx, "Invalid credentials format", err)
				return
			}
			credentials = string(decoded)
		} else if queryAuth := ctx.Query("auth"); queryAuth != "" {
			// EventSource cannot set headers, so SSE clients pass credentials here
			decoded, err := base64.StdEncoding.DecodeString(queryAuth)
			if err != nil {
				s.unauthorized(ctx, "Invalid credentials format", err)
				return
			}
			credentials = string(decoded)
		}

		if credentials == "" {
			s.unauthorized(ctx, "Authentication required")
			return
		}

		user, pass, ok := strings.Cut(credentials, ":")
		if !ok {
			s.unauthorized(ctx, "Invalid credentials format")
			return
		}
		if user != username || pass != password {
			s.unauthorized(ctx, "Invalid credentials")
			return
		}

		next(ctx)
	}
}

func (s *Server) unauthorized(ctx huma.Context, msg string, errs ...error) {
	ctx.SetHeader("WWW-Authenticate", authRealm)
	huma.WriteErr(s.api, ctx, http.StatusUnauthorized, msg, errs...)
}

// Options configures the API server.
type Options struct {
	AuthUsername string
	AuthPassword string
	// CORSOrigin overrides the Access-Control-Allow-Origin value.
	CORSOrigin        string
	Board             BoardService
	EventBus          *events.Bus
	PrometheusHandler http.Handler // Optional Prometheus metrics handler
}

// NewServer creates a new API server with Huma v2 using Go 1.22+ native routing
func NewServer(opts *Options) *Server {
	mux := http.NewServeMux()

	corsConfig := DefaultCORSConfig()
	if opts.CORSOrigin != "" {
		corsConfig.AllowOrigin = opts.CORSOrigin
	}

	// Add CORS preflight handler for all OPTIONS requests
	AddCORSHandler(mux, corsConfig)

	config := huma.DefaultConfig("boardnode API", version.String())
	config.Info.Description = "Control API for the LED bank, speaker and buttons of the lab board"
	// Empty servers list will make OpenAPI use relative paths, working with any host
	config.Servers = []*huma.Server{}
	config.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"basicAuth": {
			Type:   "http",
			Scheme: "basic",
		},
	}

	api := humago.New(mux, config)

	server := &Server{
		api:      api,
		mux:      mux,
		board:    opts.Board,
		eventBus: opts.EventBus,
		options:  opts,
		logger:   logging.GetLogger("api"),
	}

	// CORS first, then request logging, then auth
	api.UseMiddleware(NewCORSMiddleware(corsConfig))
	api.UseMiddleware(HTTPLoggingMiddleware)

	if opts.AuthUsername != "" && opts.AuthPassword != "" {
		api.UseMiddleware(server.basicAuthMiddleware(opts.AuthUsername, opts.AuthPassword))
	}

	// Metrics are scraped without auth
	if opts.PrometheusHandler != nil {
		mux.Handle("GET /metrics", opts.PrometheusHandler)
	}

	server.registerRoutes()

	return server
}

// GetMux returns the underlying HTTP ServeMux for additional setup
func (s *Server) GetMux() *http.ServeMux {
	return s.mux
}

// GetAPI returns the Huma API instance
func (s *Server) GetAPI() huma.API {
	return s.api
}

// Start serves HTTP on addr until Stop is called.
func (s *Server) Start(addr string) error {
	s.logger.Info("Starting boardnode API server", "addr", addr)
	s.logger.Info("OpenAPI documentation available", "url", "http://"+addr+"/docs")

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.mux,
	}
	return s.httpServer.ListenAndServe()
}

// Stop shuts the server down without waiting for open SSE streams.
func (s *Server) Stop() error {
	s.logger.Info("Stopping API server")
	if s.httpServer != nil {
		return s.httpServer.Close()
	}
	return nil
}

// registerRoutes sets up all API endpoints
func (s *Server) registerRoutes() {
	// Health check endpoint - no auth required
	huma.Register(s.api, huma.Operation{
		OperationID: "health-check",
		Method:      http.MethodGet,
		Path:        "/api/health",
		Summary:     "Health",
		Description: "Check API health status",
		Tags:        []string{"health"},
		Security:    []map[string][]string{}, // Empty security = no auth required
	}, func(ctx context.Context, input *struct{}) (*models.HealthResponse, error) {
		return &models.HealthResponse{
			Body: models.HealthData{
				Status:  "ok",
				Message: "API is healthy",
			},
		}, nil
	})

	// Version endpoint - no auth required
	huma.Register(s.api, huma.Operation{
		OperationID: "get-version",
		Method:      http.MethodGet,
		Path:        "/api/version",
		Summary:     "Version",
		Description: "Get application version information",
		Tags:        []string{"system"},
		Security:    []map[string][]string{},
	}, func(ctx context.Context, input *struct{}) (*models.VersionResponse, error) {
		v := version.Get()
		return &models.VersionResponse{
			Body: models.VersionData{
				Version:   v.Version,
				GitCommit: v.GitCommit,
				BuildDate: v.BuildDate,
				BuildID:   v.BuildID,
				GoVersion: v.GoVersion,
				Compiler:  v.Compiler,
				Platform:  v.Platform,
			},
		}, nil
	})

	s.registerLEDRoutes()
	s.registerSpeakerRoutes()
	s.registerBoardRoutes()
	s.registerSSERoutes()
	s.registerLogRoutes()
}

// withAuth returns security requirement for basic auth
func withAuth() []map[string][]string {
	return []map[string][]string{
		{"basicAuth": {}},
	}
}
