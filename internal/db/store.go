/*
 * Copyright (c) 2024. Anton Starikov -- All Rights Reserved
 *
 * This file is part of MZHFC project.
 *
 * MZHFC is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as the Free Software Foundation,
 * either version 3 of the License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program.  If not, see <http://www.gnu.org/licenses/>.
 */

// Package db persists controller runtime state in a local sqlite file.
// The runtime document is stored as an opaque JSON payload per controller,
// alongside a small kv table for operator-settable values.
package db

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

// RuntimeVersion is the schema version of the stored runtime document.
const RuntimeVersion = 1

const schema = `
CREATE TABLE IF NOT EXISTS runtime_state (
	controller TEXT PRIMARY KEY,
	version    INTEGER NOT NULL,
	payload    TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS controller_values (
	controller TEXT NOT NULL,
	name       TEXT NOT NULL,
	value      TEXT NOT NULL,
	PRIMARY KEY (controller, name)
);
`

type Store struct {
	db *sqlx.DB
}

func Open(dbFile string) (*Store, error) {
	sqlDB, err := sqlx.Open("sqlite3", dbFile)
	if err != nil {
		return nil, errors.Wrapf(err, "open database `%s`", dbFile)
	}
	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, errors.Wrapf(err, "ping database `%s`", dbFile)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		sqlDB.Close()
		return nil, errors.Wrap(err, "create schema")
	}
	return &Store{db: sqlDB}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRuntimeDocument replaces the stored runtime document for a controller.
func (s *Store) SaveRuntimeDocument(ctx context.Context, controller string, payload []byte) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO runtime_state (controller, version, payload) VALUES (?, ?, ?)
		 ON CONFLICT(controller) DO UPDATE SET version=excluded.version, payload=excluded.payload`,
		controller, RuntimeVersion, string(payload),
	)
	return errors.Wrapf(err, "save runtime document for `%s`", controller)
}

// LoadRuntimeDocument returns the stored runtime document, or sql.ErrNoRows
// when none was saved yet or the stored version is not readable.
func (s *Store) LoadRuntimeDocument(ctx context.Context, controller string) ([]byte, error) {
	var row struct {
		Version int    `db:"version"`
		Payload string `db:"payload"`
	}
	err := s.db.GetContext(
		ctx, &row,
		`SELECT version, payload FROM runtime_state WHERE controller = ?`, controller,
	)
	if err != nil {
		return nil, err
	}
	if row.Version != RuntimeVersion {
		return nil, sql.ErrNoRows
	}
	return []byte(row.Payload), nil
}

func (s *Store) UpsertControllerValue(ctx context.Context, controller, name, value string) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO controller_values (controller, name, value) VALUES (?, ?, ?)
		 ON CONFLICT(controller, name) DO UPDATE SET value=excluded.value`,
		controller, name, value,
	)
	return errors.Wrapf(err, "upsert value `%s` for `%s`", name, controller)
}

func (s *Store) GetControllerValue(ctx context.Context, controller, name string) (string, error) {
	var value string
	err := s.db.GetContext(
		ctx, &value,
		`SELECT value FROM controller_values WHERE controller = ? AND name = ?`, controller, name,
	)
	return value, err
}
