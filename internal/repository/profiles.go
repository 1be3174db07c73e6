package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/arampall/intelligent-document-extraction/internal/common"
)

type ProfileRepository interface {
	GetOrCreate(ctx context.Context, name, defaultCurrency, timezone string) (*Profile, error)
	GetByID(ctx context.Context, id string) (*Profile, error)
	GetByName(ctx context.Context, name string) (*Profile, error)
	List(ctx context.Context) ([]*Profile, error)
}

type profileRepository struct {
	db *DB
}

func NewProfileRepository(db *DB) ProfileRepository {
	return &profileRepository{db: db}
}

func (r *profileRepository) GetOrCreate(ctx context.Context, name, defaultCurrency, timezone string) (*Profile, error) {
	if existing, err := r.GetByName(ctx, name); err == nil {
		return existing, nil
	} else if !errors.Is(err, common.ErrNotFound) {
		return nil, err
	}

	if defaultCurrency == "" {
		defaultCurrency = "USD"
	}
	if timezone == "" {
		timezone = "UTC"
	}
	now := time.Now()
	p := &Profile{
		ID:              uuid.NewString(),
		Name:            name,
		DefaultCurrency: defaultCurrency,
		Timezone:        timezone,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	_, err := r.db.exec(ctx,
		`INSERT INTO profiles (id, name, default_currency, timezone, notes, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.DefaultCurrency, p.Timezone, p.Notes, formatTime(now), formatTime(now))
	if err != nil {
		// Lost a race with a concurrent insert; the row exists now.
		if existing, gerr := r.GetByName(ctx, name); gerr == nil {
			return existing, nil
		}
		return nil, fmt.Errorf("create profile: %w", err)
	}
	r.db.logger.Info("profile created", "profile_id", p.ID, "name", p.Name)
	return p, nil
}

func (r *profileRepository) GetByID(ctx context.Context, id string) (*Profile, error) {
	return r.scanOne(r.db.queryRow(ctx,
		`SELECT id, name, default_currency, timezone, notes, created_at, updated_at
		 FROM profiles WHERE id = ?`, id))
}

func (r *profileRepository) GetByName(ctx context.Context, name string) (*Profile, error) {
	return r.scanOne(r.db.queryRow(ctx,
		`SELECT id, name, default_currency, timezone, notes, created_at, updated_at
		 FROM profiles WHERE name = ?`, name))
}

func (r *profileRepository) List(ctx context.Context) ([]*Profile, error) {
	rows, err := r.db.query(ctx,
		`SELECT id, name, default_currency, timezone, notes, created_at, updated_at
		 FROM profiles ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	var out []*Profile
	for rows.Next() {
		p, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *profileRepository) scanOne(row *sql.Row) (*Profile, error) {
	return r.scan(row)
}

func (r *profileRepository) scan(row rowScanner) (*Profile, error) {
	var p Profile
	var created, updated string
	if err := row.Scan(&p.ID, &p.Name, &p.DefaultCurrency, &p.Timezone, &p.Notes, &created, &updated); err != nil {
		return nil, mapScanErr(err)
	}
	p.CreatedAt = parseTime(created)
	p.UpdatedAt = parseTime(updated)
	return &p, nil
}
