package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/minimart/storefront/internal/common"
	"github.com/minimart/storefront/internal/server/auth"
)

type ctxKey string

const (
	identityKey  ctxKey = "identity"
	requestIDKey ctxKey = "requestID"
)

// IdentityFrom returns the identity placed by Authenticate.
func IdentityFrom(ctx context.Context) (auth.Identity, bool) {
	id, ok := ctx.Value(identityKey).(auth.Identity)
	return id, ok
}

func withIdentity(ctx context.Context, id auth.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// sessionToken reads the session cookie, falling back to a bearer token.
func sessionToken(r *http.Request) string {
	if c, err := r.Cookie(common.SessionCookieName); err == nil && c.Value != "" {
		return c.Value
	}
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// Authenticate rejects requests without a valid session token and stores the
// token's identity in the request context.
func (s *Server) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := sessionToken(r)
		if token == "" {
			s.writeError(r.Context(), w, common.ErrorUnauthorized)
			return
		}

		id, err := s.login.ParseSession(token)
		if err != nil {
			s.logger.Debug(r.Context(), "session rejected", "error", err)
			s.writeError(r.Context(), w, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), id)))
	})
}

// RequireRole allows only identities holding role. The role comes from the
// token claims, so a change made by an admin applies from the next login.
func (s *Server) RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := IdentityFrom(r.Context())
			if !ok {
				s.writeError(r.Context(), w, common.ErrorUnauthorized)
				return
			}
			if id.Role != role {
				s.writeError(r.Context(), w, common.ErrorForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// requestID tags each request with an X-Request-ID, reusing the caller's.
func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rid := r.Header.Get("X-Request-ID")
		if rid == "" {
			rid = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", rid)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, rid)))
	})
}

func (s *Server) recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				s.logger.Error(r.Context(), "panic serving request", "panic", v, "path", r.URL.Path)
				writeErrorMessage(w, http.StatusInternalServerError, common.ErrorInternal.Error())
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// observe records metrics and an access log line per request. Requests are
// labelled with the matched route template rather than the raw path, so
// account ids do not create new series.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		route := "unmatched"
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		elapsed := time.Since(start)

		s.metrics.observeRequest(r.Method, route, rw.statusCode, elapsed)
		rid, _ := r.Context().Value(requestIDKey).(string)
		s.logger.Debug(r.Context(), "request served",
			"method", r.Method, "route", route, "status", rw.statusCode,
			"duration_ms", elapsed.Milliseconds(), "request_id", rid)
	})
}
