package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/minimart/storefront/internal/common"
	"github.com/minimart/storefront/internal/server/models"
	"github.com/minimart/storefront/internal/server/services"
)

// Throttle actions. Keys are "<action>:<subject>".
const (
	actionRegisterRequest = "register-request"
	actionRegister        = "register"
	actionLogin           = "login"
	actionLoginVerify     = "login-verify"
	actionResetRequest    = "reset-request"
	actionResetVerify     = "reset-verify"
)

type accountView struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	IsActive bool   `json:"is_active"`
}

func viewOf(a *models.Account) accountView {
	return accountView{ID: a.ID, Username: a.Username, Email: a.Email, Role: a.Role, IsActive: a.IsActive}
}

type loginResponse struct {
	Message  string `json:"message"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

func throttleKey(action, subject string) string {
	return action + ":" + strings.ToLower(subject)
}

// throttled records an attempt and reports whether the key is exhausted.
// A limiter failure is logged and the attempt goes through.
func (s *Server) throttled(ctx context.Context, action, subject string) bool {
	ok, err := s.limiter.Allow(ctx, throttleKey(action, subject))
	if err != nil {
		s.logger.Warn(ctx, "throttle unavailable", "action", action, "error", err)
	}
	if !ok {
		s.metrics.ThrottledTotal.WithLabelValues(action).Inc()
		return true
	}
	return false
}

// allow applies attempt throttling and writes 429 when the key is exhausted.
func (s *Server) allow(ctx context.Context, w http.ResponseWriter, action, subject string) bool {
	if s.throttled(ctx, action, subject) {
		s.writeError(ctx, w, common.ErrorTooManyAttempts)
		return false
	}
	return true
}

func (s *Server) forget(ctx context.Context, action, subject string) {
	if err := s.limiter.Reset(ctx, throttleKey(action, subject)); err != nil {
		s.logger.Warn(ctx, "throttle reset failed", "action", action, "error", err)
	}
}

// record counts the outcome of an auth event.
func (s *Server) record(event string, err error) {
	outcome := "ok"
	if err != nil {
		if status, _ := statusFor(err); status >= http.StatusInternalServerError {
			outcome = "error"
		} else {
			outcome = "rejected"
		}
	}
	s.metrics.authEvent(event, outcome)
}

func (s *Server) handleRegisterRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var p emailPayload
	if err := decode(w, r, &p); err != nil {
		s.writeError(ctx, w, err)
		return
	}
	if !s.allow(ctx, w, actionRegisterRequest, p.Email) {
		return
	}

	err := s.registration.RequestCode(ctx, p.Email)
	s.record("register_request", err)
	if err != nil {
		s.writeError(ctx, w, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, messageResponse{Message: "Verification code sent to your email"})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var p registerPayload
	if err := decode(w, r, &p); err != nil {
		s.writeError(ctx, w, err)
		return
	}
	if !s.allow(ctx, w, actionRegister, p.Email) {
		return
	}

	_, err := s.registration.Register(ctx, services.RegisterInput{
		Username: p.Username,
		Email:    p.Email,
		Password: p.Password,
		Code:     p.Token,
	})
	s.record("register", err)
	if err != nil {
		s.writeError(ctx, w, err)
		return
	}
	_ = writeJSON(w, http.StatusCreated, messageResponse{Message: "Account created successfully"})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var p loginPayload
	if err := decode(w, r, &p); err != nil {
		s.writeError(ctx, w, err)
		return
	}
	if !s.allow(ctx, w, actionLogin, p.Username) {
		return
	}

	err := s.login.Login(ctx, p.Username, p.Password)
	s.record("login", err)
	if err != nil {
		s.writeError(ctx, w, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, messageResponse{Message: "Login code sent to your email"})
}

func (s *Server) handleLoginVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var p loginVerifyPayload
	if err := decode(w, r, &p); err != nil {
		s.writeError(ctx, w, err)
		return
	}
	if !s.allow(ctx, w, actionLoginVerify, p.Username) {
		return
	}

	session, err := s.login.Verify(ctx, p.Username, p.Token)
	s.record("login_verify", err)
	if err != nil {
		s.writeError(ctx, w, err)
		return
	}

	s.forget(ctx, actionLogin, p.Username)
	s.forget(ctx, actionLoginVerify, p.Username)

	s.setSessionCookie(w, session)
	_ = writeJSON(w, http.StatusOK, loginResponse{
		Message:  "Login successful",
		Username: session.Account.Username,
		Role:     session.Account.Role,
	})
}

// handleLogout only clears the cookie. The token itself stays valid until it
// expires.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.clearSessionCookie(w)
	http.Redirect(w, r, "/", http.StatusFound)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, _ := IdentityFrom(ctx)

	account, err := s.accounts.FindByID(ctx, id.AccountID)
	if err != nil {
		s.writeError(ctx, w, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, viewOf(account))
}

func (s *Server) handleResetRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var p resetRequestPayload
	if err := decode(w, r, &p); err != nil {
		s.writeError(ctx, w, err)
		return
	}

	// The answer is the same whether or not a code went out, so a throttled
	// caller only stops getting mail.
	if s.throttled(ctx, actionResetRequest, p.Email) {
		s.logger.Info(ctx, "reset request throttled")
	} else {
		err := s.reset.Request(ctx, p.Email)
		s.record("reset_request", err)
		if err != nil {
			s.logger.Warn(ctx, "reset request failed", "error", err)
		}
	}
	_ = writeJSON(w, http.StatusOK, messageResponse{Message: "If your email exists, a reset code was sent"})
}

func (s *Server) handleResetVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var p resetVerifyPayload
	if err := decode(w, r, &p); err != nil {
		s.writeError(ctx, w, err)
		return
	}
	if !s.allow(ctx, w, actionResetVerify, p.Email) {
		return
	}

	err := s.reset.Verify(ctx, p.Email, p.Token, p.NewPassword)
	s.record("reset_verify", err)
	if err != nil {
		s.writeError(ctx, w, err)
		return
	}
	s.forget(ctx, actionResetVerify, p.Email)
	_ = writeJSON(w, http.StatusOK, messageResponse{Message: "Password updated successfully"})
}

func (s *Server) setSessionCookie(w http.ResponseWriter, session *services.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     common.SessionCookieName,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		MaxAge:   int(s.sessionTTL / time.Second),
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     common.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}
