package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"foodDelivery/internal/auth"
)

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      any       `json:"user"`
}

func (s *Server) issue(w http.ResponseWriter, r *http.Request, p auth.Principal, user any) {
	sess, err := s.deps.Sessions.Issue(r.Context(), p)
	if err != nil {
		fail(w, r, err)
		return
	}
	logrus.WithFields(logrus.Fields{"kind": p.Kind, "id": p.ID}).Info("login")
	writeJSON(w, http.StatusOK, loginResponse{
		Token:     sess.Token,
		ExpiresAt: sess.ExpiresAt.UTC(),
		User:      user,
	})
}

func (s *Server) adminLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, r, err)
		return
	}
	username := strings.TrimSpace(req.Username)
	if username == "" || req.Password == "" {
		fail(w, r, badRequest("username and password are required"))
		return
	}
	a, err := s.deps.Admins.GetByUsername(r.Context(), username)
	if err != nil {
		fail(w, r, err)
		return
	}
	if a == nil || !auth.CheckPassword(a.PasswordHash, req.Password) {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	s.issue(w, r, auth.Principal{ID: a.ID, Name: a.Username, Kind: auth.KindAdmin}, a)
}

func (s *Server) driverLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Phone    string `json:"phone"`
		Password string `json:"password"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, r, err)
		return
	}
	phone := strings.TrimSpace(req.Phone)
	if phone == "" || req.Password == "" {
		fail(w, r, badRequest("phone and password are required"))
		return
	}
	d, err := s.deps.Drivers.GetByPhone(r.Context(), phone)
	if err != nil {
		fail(w, r, err)
		return
	}
	if d == nil || !auth.CheckPassword(d.PasswordHash, req.Password) {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if !d.IsActive {
		writeError(w, http.StatusForbidden, "account disabled")
		return
	}
	s.issue(w, r, auth.Principal{ID: d.ID, Name: d.Name, Kind: auth.KindDriver}, d)
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Sessions.Revoke(r.Context(), principal(r)); err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// verify reports the account behind the caller's token.
func (s *Server) verify(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	var (
		user any
		err  error
	)
	switch p.Kind {
	case auth.KindAdmin:
		a, gerr := s.deps.Admins.GetByID(r.Context(), p.ID)
		if a != nil {
			user = a
		}
		err = gerr
	case auth.KindDriver:
		d, gerr := s.deps.Drivers.GetByID(r.Context(), p.ID)
		if d != nil && d.IsActive {
			user = d
		}
		err = gerr
	}
	if err != nil {
		fail(w, r, err)
		return
	}
	if user == nil {
		writeError(w, http.StatusUnauthorized, "account no longer exists")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"valid": true, "user": user})
}

func (s *Server) updateProfile(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name  string  `json:"name"`
		Email *string `json:"email"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, r, err)
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		fail(w, r, badRequest("name is required"))
		return
	}
	if req.Email != nil && *req.Email != "" && !strings.Contains(*req.Email, "@") {
		fail(w, r, badRequest("invalid email %q", *req.Email))
		return
	}
	id := principal(r).ID
	if err := s.deps.Admins.UpdateProfile(r.Context(), id, name, req.Email); err != nil {
		fail(w, r, notFoundOnNoRows(err))
		return
	}
	a, err := s.deps.Admins.GetByID(r.Context(), id)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) changePassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, r, err)
		return
	}
	if req.CurrentPassword == "" || len(req.NewPassword) < auth.MinPasswordLength {
		fail(w, r, badRequest("new password must be at least %d characters", auth.MinPasswordLength))
		return
	}
	id := principal(r).ID
	a, err := s.deps.Admins.GetByID(r.Context(), id)
	if err != nil {
		fail(w, r, err)
		return
	}
	if a == nil {
		fail(w, r, errNotFound)
		return
	}
	if !auth.CheckPassword(a.PasswordHash, req.CurrentPassword) {
		writeError(w, http.StatusUnauthorized, "current password is incorrect")
		return
	}
	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		fail(w, r, err)
		return
	}
	if err := s.deps.Admins.UpdatePassword(r.Context(), id, hash); err != nil {
		fail(w, r, notFoundOnNoRows(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
