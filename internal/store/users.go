package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/qrstock/internal/db"
	"github.com/erazemk/qrstock/internal/model"
)

// UpsertUser creates the user for an external identity, or refreshes the
// profile fields of an existing one.
func UpsertUser(ctx context.Context, database *db.DB, externalID, username, email, avatarURL string) (*model.User, error) {
	var id int64
	err := database.QueryRowContext(ctx, database.Rebind(
		`INSERT INTO users (external_id, username, email, avatar_url) VALUES (?, ?, ?, ?)
		 ON CONFLICT (external_id) DO UPDATE
		 SET username = excluded.username, email = excluded.email, avatar_url = excluded.avatar_url
		 RETURNING id`),
		externalID, username, email, avatarURL,
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("upserting user: %w", err)
	}

	return GetUser(ctx, database, id)
}

// GetUser returns a user by ID, or nil if there is none.
func GetUser(ctx context.Context, database *db.DB, id int64) (*model.User, error) {
	u := &model.User{}
	err := database.QueryRowContext(ctx, database.Rebind(
		`SELECT id, external_id, username, email, avatar_url, created_at
		 FROM users WHERE id = ?`), id,
	).Scan(&u.ID, &u.ExternalID, &u.Username, &u.Email, &u.AvatarURL, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}
	return u, nil
}
