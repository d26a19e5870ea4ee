package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"foodDelivery/repository"
)

// Authenticate rejects requests without a live session and stores the Principal
// in the request context.
func Authenticate(sessions *Sessions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok, err := BearerFromRequest(r)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized: "+err.Error())
				return
			}
			p, err := sessions.Verify(r.Context(), tok)
			if err != nil {
				if !errors.Is(err, ErrInvalidToken) && !errors.Is(err, ErrRevoked) {
					logrus.WithError(err).Error("verify session")
					writeError(w, http.StatusInternalServerError, "internal server error")
					return
				}
				writeError(w, http.StatusUnauthorized, "unauthorized: "+err.Error())
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

// RoleBasedMiddleware lets through principals of the given kinds only.
// It must run after Authenticate.
func RoleBasedMiddleware(kinds ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(kinds))
	for _, k := range kinds {
		allowed[strings.ToLower(k)] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := FromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			if !allowed[p.Kind] {
				writeError(w, http.StatusForbidden, "forbidden: insufficient role")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// AccountMiddleware re-checks the account behind the session: admins must still
// exist and drivers must still exist and be active.
func AccountMiddleware(admins repository.AdminRepositoryI, drivers repository.DriverRepositoryI) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := FromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			var (
				live bool
				err  error
			)
			switch p.Kind {
			case KindAdmin:
				a, gerr := admins.GetByID(r.Context(), p.ID)
				live, err = a != nil, gerr
			case KindDriver:
				d, gerr := drivers.GetByID(r.Context(), p.ID)
				live, err = d != nil && d.IsActive, gerr
			}
			if err != nil {
				logrus.WithError(err).WithField("kind", p.Kind).Error("account lookup")
				writeError(w, http.StatusInternalServerError, "internal server error")
				return
			}
			if !live {
				writeError(w, http.StatusForbidden, "forbidden: account disabled")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
