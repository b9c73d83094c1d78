package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/claude/fitlog/internal/models"
	"github.com/google/uuid"
)

// GetProfile returns the user's profile, or defaults if none has been saved.
func (db *DB) GetProfile(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	p := models.Profile{UserID: userID, WeightUnit: "kg", DistanceUnit: "km"}
	err := db.Pool.QueryRow(ctx,
		`SELECT display_name, weight_unit, distance_unit, updated_at
		 FROM profiles WHERE user_id = $1`,
		userID).Scan(&p.DisplayName, &p.WeightUnit, &p.DistanceUnit, &p.UpdatedAt)
	if err != nil {
		if errors.Is(notFound(err), ErrNotFound) {
			return &p, nil
		}
		return nil, fmt.Errorf("querying profile: %w", err)
	}
	return &p, nil
}

// UpsertProfile creates or replaces the user's profile.
func (db *DB) UpsertProfile(ctx context.Context, p *models.Profile) error {
	err := db.Pool.QueryRow(ctx,
		`INSERT INTO profiles (user_id, display_name, weight_unit, distance_unit, updated_at)
		 VALUES ($1, $2, $3, $4, NOW())
		 ON CONFLICT (user_id) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			weight_unit = EXCLUDED.weight_unit,
			distance_unit = EXCLUDED.distance_unit,
			updated_at = NOW()
		 RETURNING updated_at`,
		p.UserID, p.DisplayName, p.WeightUnit, p.DistanceUnit).Scan(&p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upserting profile: %w", err)
	}
	return nil
}
