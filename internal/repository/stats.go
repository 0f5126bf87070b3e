package repository

import (
	"context"
	"time"
)

type AuthStats struct {
	PendingTokens int64
	Users         int64
	ActiveUsers   int64
}

type StatsRepository interface {
	// Snapshot counts unused unexpired tokens at now, all users, and users
	// who logged in after activeSince.
	Snapshot(ctx context.Context, now, activeSince time.Time) (AuthStats, error)
}
