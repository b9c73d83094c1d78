package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// DeleteOptions selects which categories of a user's data delete_user_data removes.
type DeleteOptions struct {
	Workouts     bool `json:"workouts"`
	Sessions     bool `json:"sessions"`
	Schedule     bool `json:"schedule"`
	Measurements bool `json:"measurements"`
}

// Any reports whether at least one category is selected.
func (o DeleteOptions) Any() bool {
	return o.Workouts || o.Sessions || o.Schedule || o.Measurements
}

// DeleteUserData calls the delete_user_data procedure with the given options.
func (db *DB) DeleteUserData(ctx context.Context, userID uuid.UUID, opts DeleteOptions) error {
	data, err := json.Marshal(opts)
	if err != nil {
		return fmt.Errorf("encoding delete options: %w", err)
	}
	if _, err := db.Pool.Exec(ctx, `SELECT delete_user_data($1, $2::jsonb)`, userID, string(data)); err != nil {
		return fmt.Errorf("deleting user data: %w", err)
	}
	return nil
}
