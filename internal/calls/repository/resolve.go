package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"callqa_backend/platform/apperr"
)

// ResolveAgent maps an agent reference (UUID, employee id or name) to the
// agent's UUID.
func (r *Repository) ResolveAgent(ctx context.Context, ref string) (uuid.UUID, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return uuid.Nil, apperr.Validation("agent reference is empty")
	}

	if id, err := uuid.Parse(ref); err == nil {
		var found uuid.UUID
		err := r.pool.QueryRow(ctx, `SELECT id FROM agents WHERE id = $1`, id).Scan(&found)
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, apperr.NotFound("agent not found")
		}
		if err != nil {
			return uuid.Nil, fmt.Errorf("resolve agent by id: %w", err)
		}
		return found, nil
	}

	var id uuid.UUID
	err := r.pool.QueryRow(ctx, `
		SELECT id FROM agents
		WHERE employee_id = $1 OR lower(name) = lower($1)
		ORDER BY (employee_id = $1) DESC
		LIMIT 1
	`, ref).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, apperr.NotFound("agent not found")
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("resolve agent by reference: %w", err)
	}
	return id, nil
}

// ResolveCity maps a city reference (numeric id or name) to the city id.
func (r *Repository) ResolveCity(ctx context.Context, ref string) (int32, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return 0, apperr.Validation("city reference is empty")
	}

	var id int32
	if n, err := strconv.Atoi(ref); err == nil {
		err := r.pool.QueryRow(ctx, `SELECT id FROM cities WHERE id = $1`, n).Scan(&id)
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, apperr.NotFound("city not found")
		}
		if err != nil {
			return 0, fmt.Errorf("resolve city by id: %w", err)
		}
		return id, nil
	}

	err := r.pool.QueryRow(ctx,
		`SELECT id FROM cities WHERE lower(name) = lower($1)`, ref).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, apperr.NotFound("city not found")
	}
	if err != nil {
		return 0, fmt.Errorf("resolve city by name: %w", err)
	}
	return id, nil
}
