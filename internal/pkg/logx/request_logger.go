package logx

import (
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// anonymizeIP zeroes the host part of an address: the last octet for IPv4, the
// lower 64 bits for IPv6. Loopback addresses are reported as 127.0.0.1.
func anonymizeIP(addr string) string {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		addr = host
	}

	ip := net.ParseIP(addr)
	switch {
	case ip == nil:
		return "unknown_ip"
	case ip.IsLoopback():
		return "127.0.0.1"
	case ip.To4() != nil:
		v4 := ip.To4()
		return net.IPv4(v4[0], v4[1], v4[2], 0).String()
	}

	masked := make(net.IP, net.IPv6len)
	copy(masked, ip.To16()[:8])
	return masked.String()
}

// RequestLogger returns chi middleware that logs one line per request.
//
// Plain requests (registration, health) log status, size and latency; health checks
// only at debug level. A socket upgrade logs when its connection ends: the hijacked
// response never reports a status, so it is recorded as 101 with the session length.
func RequestLogger() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			upgrade := websocket.IsWebSocketUpgrade(r)

			logger := Component("http").With().
				Str("request_id", middleware.GetReqID(r.Context())).
				Str("remote_ip", anonymizeIP(r.RemoteAddr)).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Logger()

			r = r.WithContext(logger.WithContext(r.Context()))

			start := time.Now()
			next.ServeHTTP(ww, r)
			elapsed := time.Since(start)

			status := ww.Status()
			if upgrade && status == 0 {
				status = http.StatusSwitchingProtocols
			}

			ev := requestEvent(&logger, r, status)
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				ev = ev.Str("route", rctx.RoutePattern())
			}

			if status == http.StatusSwitchingProtocols {
				ev.Int("status", status).Dur("session", elapsed).Msg("WebSocket session ended")
				return
			}

			ev.Int("status", status).
				Int("bytes", ww.BytesWritten()).
				Dur("latency", elapsed).
				Msg("Request completed")
		})
	}
}

func requestEvent(logger *zerolog.Logger, r *http.Request, status int) *zerolog.Event {
	switch {
	case status >= 500:
		return logger.Error()
	case status >= 400:
		return logger.Warn()
	case r.URL.Path == "/health":
		return logger.Debug()
	default:
		return logger.Info()
	}
}
