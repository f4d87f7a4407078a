// Copyright (c) 2026, the Queqiao contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/queqiao-arr/queqiao/internal/api/ctxkeys"
	"github.com/queqiao-arr/queqiao/internal/auth"
	"github.com/queqiao-arr/queqiao/internal/models"
)

func respondDetail(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"detail": detail})
}

// RequireAuth resolves the Authorization bearer token to an active user and
// stores it in the request context. Requests without a verifiable token stop
// here with a 401.
func RequireAuth(authService *auth.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				respondDetail(w, http.StatusUnauthorized, "Not authenticated")
				return
			}

			user, err := authService.ResolveUser(r.Context(), token)
			if err != nil {
				log.Debug().Err(err).Msg("bearer token rejected")
				respondDetail(w, http.StatusUnauthorized, "Could not validate credentials")
				return
			}

			ctx := context.WithValue(r.Context(), ctxkeys.User, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin rejects authenticated principals that are not superusers.
// It must run after RequireAuth.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := UserFromContext(r.Context())
		if user == nil {
			respondDetail(w, http.StatusUnauthorized, "Not authenticated")
			return
		}
		if !user.IsSuperuser {
			respondDetail(w, http.StatusForbidden, "Administrator privileges required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// UserFromContext returns the principal RequireAuth resolved, or nil.
func UserFromContext(ctx context.Context) *models.User {
	user, _ := ctx.Value(ctxkeys.User).(*models.User)
	return user
}
