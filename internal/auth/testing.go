package auth

import "context"

// SetSeatForTest injects a seat into the context for testing purposes.
func SetSeatForTest(ctx context.Context, gameID, tribe string) context.Context {
	return WithSeat(ctx, Seat{GameID: gameID, Tribe: tribe})
}
