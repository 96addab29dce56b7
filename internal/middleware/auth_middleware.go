package middleware

import (
	"context"
	"net/http"
	"strings"

	"polyform-sync/pkg/jwt"
	"polyform-sync/pkg/response"

	"github.com/gorilla/mux"
)

type contextKey string

const TicketClaimsKey contextKey = "ticketClaims"

// TicketFromRequest reads a room ticket from the Authorization bearer header,
// falling back to the ticket query parameter for websocket upgrades.
func TicketFromRequest(r *http.Request) string {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	return r.URL.Query().Get("ticket")
}

// TicketMiddleware admits requests carrying a valid ticket for the space in
// the {id} route variable. With requireEdit, view tickets are refused.
func TicketMiddleware(secret string, requireEdit bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			token := TicketFromRequest(r)
			if token == "" {
				response.Unauthorized(w, "Missing room ticket")
				return
			}

			claims, err := jwt.ValidateToken(token, secret)
			if err != nil {
				response.Unauthorized(w, "Invalid or expired room ticket")
				return
			}

			if spaceID := mux.Vars(r)["id"]; spaceID != "" && spaceID != claims.SpaceID {
				response.Forbidden(w, "Ticket is not valid for this space")
				return
			}

			if requireEdit && !claims.CanEdit() {
				response.Forbidden(w, "Read-only access")
				return
			}

			ctx := context.WithValue(r.Context(), TicketClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func GetTicketClaims(r *http.Request) *jwt.Claims {
	claims, ok := r.Context().Value(TicketClaimsKey).(*jwt.Claims)
	if !ok {
		return nil
	}
	return claims
}
