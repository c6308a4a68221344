package ip

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/robalyx/imagegate/internal/setup/config"
	"github.com/uptrace/bunrouter"
	"go.uber.org/zap"
)

type ipCtxKey struct{}

// UnknownIP is returned when no valid IP can be determined.
const UnknownIP = "unknown"

// FromContext retrieves the client IP from the context.
func FromContext(ctx context.Context) string {
	if ip, ok := ctx.Value(ipCtxKey{}).(string); ok {
		return ip
	}
	return UnknownIP
}

// Middleware resolves the client IP and stores it in the context.
type Middleware struct {
	trustProxy bool
	logger     *zap.Logger
}

// New creates a new IP middleware.
func New(logger *zap.Logger, cfg *config.Server) *Middleware {
	return &Middleware{
		trustProxy: cfg.TrustProxyHeaders,
		logger:     logger.Named("ip_middleware"),
	}
}

// AsRESTMiddleware returns a bunrouter middleware handler.
func (m *Middleware) AsRESTMiddleware(next bunrouter.HandlerFunc) bunrouter.HandlerFunc {
	return func(w http.ResponseWriter, req bunrouter.Request) error {
		ip := m.clientIP(req.Request)
		if ip == UnknownIP {
			m.logger.Debug("No valid client IP found", zap.String("remote_addr", req.RemoteAddr))
		}

		ctx := context.WithValue(req.Context(), ipCtxKey{}, ip)
		return next(w, req.WithContext(ctx))
	}
}

// clientIP prefers the right-most valid X-Forwarded-For entry when proxy
// headers are trusted, then falls back to the remote address.
func (m *Middleware) clientIP(r *http.Request) string {
	if m.trustProxy {
		if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
			ips := strings.Split(forwarded, ",")
			for i := len(ips) - 1; i >= 0; i-- {
				if parsed := net.ParseIP(strings.TrimSpace(ips[i])); parsed != nil {
					return parsed.String()
				}
			}
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if parsed := net.ParseIP(host); parsed != nil {
		return parsed.String()
	}
	return UnknownIP
}
