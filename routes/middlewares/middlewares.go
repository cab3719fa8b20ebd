package middlewares

import (
	"context"
	"net/http"
	"time"

	"github.com/felixge/httpsnoop"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth/v5"
	"github.com/mbolis/survey3/app"
	"github.com/mbolis/survey3/httpx"
	"github.com/mbolis/survey3/log"
	"github.com/mbolis/survey3/metrics"
	"github.com/mbolis/survey3/model"
)

const AccessTokenCookie = "access_token"

type userKey struct{}

// CurrentUser returns the user set by Auth, or nil outside of it.
func CurrentUser(ctx context.Context) *model.User {
	u, _ := ctx.Value(userKey{}).(*model.User)
	return u
}

func WithUser(ctx context.Context, u *model.User) context.Context {
	return context.WithValue(ctx, userKey{}, u)
}

// Auth middleware to resolve the bearer token, or the access_token cookie,
// to a stored user.
func Auth(app app.App) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := jwtauth.TokenFromHeader(r)
			if token == "" {
				if cookie, err := r.Cookie(AccessTokenCookie); err == nil {
					token = cookie.Value
				}
			}

			user, err := app.Authenticate(r.Context(), token)
			if err != nil {
				httpx.Fail(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// Observe writes one log entry per request and records it in m, labelled
// with the matched route pattern.
func Observe(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			snoop := httpsnoop.CaptureMetrics(next, w, r)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			m.ObserveRequest(r.Method, route, snoop.Code, snoop.Duration)

			level := log.DebugLevel
			if snoop.Code >= http.StatusInternalServerError {
				level = log.WarnLevel
			}
			log.WithFields(log.Fields{
				"request_id": middleware.GetReqID(r.Context()),
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     snoop.Code,
				"bytes":      snoop.Written,
				"duration":   snoop.Duration.Round(time.Microsecond).String(),
			}).Log(level.Logrus(), "request")
		})
	}
}
