// Package httpapi is the JSON HTTP surface of the storefront auth service:
// registration, login, password reset, the session cookie and the admin
// users API.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/minimart/storefront/internal/common"
	"github.com/minimart/storefront/internal/logging"
	"github.com/minimart/storefront/internal/server/auth"
	"github.com/minimart/storefront/internal/server/models"
	"github.com/minimart/storefront/internal/server/ratelimit"
	"github.com/minimart/storefront/internal/server/services"
	"github.com/prometheus/client_golang/prometheus"
)

type RegistrationService interface {
	RequestCode(ctx context.Context, email string) error
	Register(ctx context.Context, in services.RegisterInput) (*models.Account, error)
}

type LoginService interface {
	Login(ctx context.Context, username, password string) error
	Verify(ctx context.Context, username, code string) (*services.Session, error)
	ParseSession(token string) (auth.Identity, error)
}

type PasswordResetService interface {
	Request(ctx context.Context, email string) error
	Verify(ctx context.Context, email, code, newPassword string) error
}

type AccountService interface {
	FindByID(ctx context.Context, id string) (*models.Account, error)
}

type AdminService interface {
	List(ctx context.Context) ([]*models.Account, error)
	Get(ctx context.Context, id string) (*models.Account, error)
	Update(ctx context.Context, actorID, id string, upd services.AccountUpdate) (*models.Account, error)
	Delete(ctx context.Context, actorID, id string) error
}

// Probes serves the liveness and readiness endpoints.
type Probes interface {
	Liveness(w http.ResponseWriter, r *http.Request)
	Readiness(w http.ResponseWriter, r *http.Request)
}

// Deps are the collaborators of the HTTP server. Limiter, Probes and Metrics
// are optional.
type Deps struct {
	Registration RegistrationService
	Login        LoginService
	Reset        PasswordResetService
	Accounts     AccountService
	Admin        AdminService
	Limiter      ratelimit.Limiter
	Probes       Probes
	Metrics      *Metrics
}

// Options configures the session cookie and the listener.
type Options struct {
	Address      string
	CookieSecure bool
	SessionTTL   time.Duration
}

type Server struct {
	address      string
	cookieSecure bool
	sessionTTL   time.Duration

	registration RegistrationService
	login        LoginService
	reset        PasswordResetService
	accounts     AccountService
	admin        AdminService
	limiter      ratelimit.Limiter
	probes       Probes
	metrics      *Metrics
	logger       logging.Logger

	router *mux.Router
}

func NewServer(opts Options, d Deps, l logging.Logger) *Server {
	s := &Server{
		address:      opts.Address,
		cookieSecure: opts.CookieSecure,
		sessionTTL:   opts.SessionTTL,
		registration: d.Registration,
		login:        d.Login,
		reset:        d.Reset,
		accounts:     d.Accounts,
		admin:        d.Admin,
		limiter:      d.Limiter,
		probes:       d.Probes,
		metrics:      d.Metrics,
		logger:       l.With("module", "http_server"),
	}
	if s.limiter == nil {
		s.limiter = ratelimit.Noop{}
	}
	if s.metrics == nil {
		s.metrics = NewMetrics(prometheus.NewRegistry())
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.requestID, s.observe, s.recoverPanics)

	r.HandleFunc("/register/request", s.handleRegisterRequest).Methods(http.MethodPost)
	r.HandleFunc("/register", s.handleRegister).Methods(http.MethodPost)
	r.HandleFunc("/login", s.handleLogin).Methods(http.MethodPost)
	r.HandleFunc("/login/verify", s.handleLoginVerify).Methods(http.MethodPost)
	r.HandleFunc("/reset/request", s.handleResetRequest).Methods(http.MethodPost)
	r.HandleFunc("/reset/verify", s.handleResetVerify).Methods(http.MethodPost)

	session := r.NewRoute().Subrouter()
	session.Use(s.Authenticate)
	session.HandleFunc("/logout", s.handleLogout).Methods(http.MethodGet)
	session.HandleFunc("/me", s.handleMe).Methods(http.MethodGet)

	admin := r.NewRoute().Subrouter()
	admin.Use(s.Authenticate, s.RequireRole(common.RoleAdmin))
	admin.HandleFunc("/admin/api/users", s.handleListAccounts).Methods(http.MethodGet)
	admin.HandleFunc("/admin/api/users/{id}", s.handleGetAccount).Methods(http.MethodGet)
	admin.HandleFunc("/admin/api/users/{id}", s.handleUpdateAccount).Methods(http.MethodPatch)
	admin.HandleFunc("/admin/api/users/{id}", s.handleDeleteAccount).Methods(http.MethodDelete)
	admin.HandleFunc("/users/{id}", s.handleDeleteAccount).Methods(http.MethodDelete)

	if s.probes != nil {
		r.HandleFunc("/healthz", s.probes.Liveness).Methods(http.MethodGet)
		r.HandleFunc("/readyz", s.probes.Readiness).Methods(http.MethodGet)
	}
	r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)

	return r
}

// Handler returns the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "HTTP shutdown failed", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
