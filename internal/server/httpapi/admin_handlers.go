package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/minimart/storefront/internal/server/services"
)

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	accounts, err := s.admin.List(ctx)
	if err != nil {
		s.writeError(ctx, w, err)
		return
	}

	views := make([]accountView, 0, len(accounts))
	for _, a := range accounts {
		views = append(views, viewOf(a))
	}
	_ = writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	account, err := s.admin.Get(ctx, mux.Vars(r)["id"])
	if err != nil {
		s.writeError(ctx, w, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, viewOf(account))
}

func (s *Server) handleUpdateAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, _ := IdentityFrom(ctx)

	var p accountPatchPayload
	if err := decode(w, r, &p); err != nil {
		s.writeError(ctx, w, err)
		return
	}

	account, err := s.admin.Update(ctx, actor.AccountID, mux.Vars(r)["id"], services.AccountUpdate{
		Role:     p.Role,
		IsActive: p.IsActive,
	})
	if err != nil {
		s.writeError(ctx, w, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, viewOf(account))
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, _ := IdentityFrom(ctx)

	if err := s.admin.Delete(ctx, actor.AccountID, mux.Vars(r)["id"]); err != nil {
		s.writeError(ctx, w, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, messageResponse{Message: "User deleted"})
}
