package playerhistory

import "context"

type Repository interface {
	// Upsert writes the (player, team, season) snapshot; when e.IsCurrent is
	// set it clears the flag on every other entry of the player in the same
	// transaction.
	Upsert(ctx context.Context, e Entry) (Entry, error)
	ListByPlayer(ctx context.Context, playerID string) ([]Entry, error)
	GetCurrent(ctx context.Context, playerID string) (Entry, bool, error)
}
