package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const createEntryTableSQL = `
CREATE TABLE IF NOT EXISTS storage_entry
(
    key        VARCHAR PRIMARY KEY,
    value      TEXT        NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`

type PsqlStorage struct {
	db *pgxpool.Pool
}

func NewPsqlStorage(db *pgxpool.Pool) *PsqlStorage {
	return &PsqlStorage{
		db: db,
	}
}

func (ps *PsqlStorage) EnsureSchema(ctx context.Context) error {
	if _, err := ps.db.Exec(ctx, createEntryTableSQL); err != nil {
		return fmt.Errorf("create storage_entry table: %w", err)
	}
	return nil
}

func (ps *PsqlStorage) GetItem(ctx context.Context, key string) ([]byte, bool, error) {
	if err := validateKey(key); err != nil {
		return nil, false, err
	}

	var value string
	err := ps.db.QueryRow(
		ctx,
		`SELECT value FROM storage_entry WHERE key = $1;`,
		key,
	).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("select entry [%s]: %w", key, err)
	}

	return []byte(value), true, nil
}

func (ps *PsqlStorage) SetItem(ctx context.Context, key string, value []byte) error {
	if err := validateKey(key); err != nil {
		return err
	}

	_, err := ps.db.Exec(
		ctx,
		`
			INSERT INTO storage_entry (key, value, updated_at) VALUES ($1, $2, now())
			ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at;`,
		key, string(value),
	)
	if err != nil {
		return fmt.Errorf("upsert entry [%s]: %w", key, err)
	}
	return nil
}

func (ps *PsqlStorage) RemoveItem(ctx context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}

	if _, err := ps.db.Exec(ctx, `DELETE FROM storage_entry WHERE key = $1;`, key); err != nil {
		return fmt.Errorf("delete entry [%s]: %w", key, err)
	}
	return nil
}
