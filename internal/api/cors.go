package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/danielgtaylor/huma/v2"
)

// CORSConfig holds CORS configuration
type CORSConfig struct {
	AllowOrigin  string
	AllowMethods []string
	AllowHeaders []string
	MaxAge       int
}

// DefaultCORSConfig allows any origin, which suits a bench instrument on a
// lab network.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowOrigin:  "*",
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowHeaders: []string{"Content-Type", "Authorization", "Accept", "Origin", "Last-Event-ID"},
		MaxAge:       86400,
	}
}

// headers returns the response headers as name/value pairs.
func (c CORSConfig) headers() [][2]string {
	return [][2]string{
		{"Access-Control-Allow-Origin", c.AllowOrigin},
		{"Access-Control-Allow-Methods", strings.Join(c.AllowMethods, ", ")},
		{"Access-Control-Allow-Headers", strings.Join(c.AllowHeaders, ", ")},
		{"Access-Control-Max-Age", strconv.Itoa(c.MaxAge)},
	}
}

// NewCORSMiddleware adds CORS headers to every huma operation.
func NewCORSMiddleware(config CORSConfig) func(huma.Context, func(huma.Context)) {
	headers := config.headers()
	return func(ctx huma.Context, next func(huma.Context)) {
		for _, h := range headers {
			ctx.SetHeader(h[0], h[1])
		}
		if ctx.Method() == http.MethodOptions {
			ctx.SetStatus(http.StatusNoContent)
			return
		}
		next(ctx)
	}
}

// AddCORSHandler answers preflight requests on the mux. Huma middleware only
// runs for registered operations, and no operation is registered for OPTIONS.
func AddCORSHandler(mux *http.ServeMux, config CORSConfig) {
	headers := config.headers()
	mux.HandleFunc("OPTIONS /", func(w http.ResponseWriter, _ *http.Request) {
		for _, h := range headers {
			w.Header().Set(h[0], h[1])
		}
		w.WriteHeader(http.StatusNoContent)
	})
}
