package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/openlar/openlar/models"
	"gorm.io/gorm"
)

type contextKey string

// identityKey is the request-context key under which the authenticated
// user is stored.
const identityKey contextKey = "identity"

var errInvalidToken = errors.New("invalid or expired token")

// AuthenticationMiddleware is called for each request. It checks the IP
// allowlist, resolves the bearer token to a user and attaches the identity
// to the request context. The identity is always taken from the session,
// never from anything the client puts in a message body.
//
// Websocket clients cannot set headers on the browser API, so the token
// may alternatively be passed as a "token" query parameter.
func (g *Gateway) AuthenticationMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(g.config.AllowedIPs) > 0 {
			remoteAddr := strings.Split(r.RemoteAddr, ":")
			if !g.config.AllowedIPs[remoteAddr[0]] {
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}
		}

		token := r.Header.Get("Authorization")
		token = strings.TrimPrefix(token, "Bearer ")
		if token == "" {
			token = r.URL.Query().Get("token")
		}

		user, err := g.userForToken(token)
		if err != nil {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		ctx := context.WithValue(r.Context(), identityKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// CORSAllowAllOriginsMiddleware sets permissive CORS headers.
func (g *Gateway) CORSAllowAllOriginsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
		if r.Method == http.MethodOptions {
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (g *Gateway) userForToken(token string) (*models.User, error) {
	if token == "" {
		return nil, errInvalidToken
	}

	var (
		session models.Session
		user    models.User
	)
	err := g.db.View(func(tx *gorm.DB) error {
		if err := tx.Where("token = ?", token).First(&session).Error; err != nil {
			return err
		}
		return tx.First(&user, session.UserID).Error
	})
	if err != nil {
		return nil, errInvalidToken
	}
	if session.Expired() {
		return nil, errInvalidToken
	}
	return &user, nil
}

// identityFromRequest returns the authenticated user attached by the
// middleware, or nil.
func identityFromRequest(r *http.Request) *models.User {
	user, _ := r.Context().Value(identityKey).(*models.User)
	return user
}

// requireRoles wraps a handler with a role check, independent of the
// transport-level authentication.
func requireRoles(handler http.HandlerFunc, roles ...models.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := identityFromRequest(r)
		if user == nil {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		for _, role := range roles {
			if user.Role == role {
				handler(w, r)
				return
			}
		}
		http.Error(w, "Forbidden", http.StatusForbidden)
	}
}
