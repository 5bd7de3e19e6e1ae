package auth

import (
	"context"
	"net/http"
	"strings"
)

type contextKey string

const seatKey contextKey = "seat"

// Seat identifies the game and tribe a request acts for.
type Seat struct {
	GameID string
	Tribe  string
}

// Middleware returns an HTTP middleware that validates seat tokens.
// Extracts the token from the Authorization header (Bearer scheme)
// and stores the seat in the request context.
func Middleware(jwtMgr *JWTManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				http.Error(w, `{"error":"missing authorization header"}`, http.StatusUnauthorized)
				return
			}

			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				http.Error(w, `{"error":"invalid authorization format"}`, http.StatusUnauthorized)
				return
			}

			claims, err := jwtMgr.ValidateToken(parts[1])
			if err != nil {
				http.Error(w, `{"error":"invalid or expired token"}`, http.StatusUnauthorized)
				return
			}

			ctx := WithSeat(r.Context(), Seat{GameID: claims.GameID, Tribe: claims.Tribe})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithSeat stores seat in ctx.
func WithSeat(ctx context.Context, seat Seat) context.Context {
	return context.WithValue(ctx, seatKey, seat)
}

// SeatFromContext extracts the authenticated seat from the request context.
func SeatFromContext(ctx context.Context) (Seat, bool) {
	s, ok := ctx.Value(seatKey).(Seat)
	return s, ok
}
