// Copyright 2025 The Clientbook Authors
// SPDX-License-Identifier: Apache-2.0

package clients

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/bufalari/clientbook/spatial"
	"github.com/lib/pq"
)

// Dialect selects the SQL flavour of a repository.
type Dialect string

const (
	DialectDuckDB   Dialect = "duckdb"
	DialectPostgres Dialect = "postgres"
)

// ErrDuplicate is returned by Save when the storage engine rejects a second
// active record with the same email and SIN.
var ErrDuplicate = errors.New("duplicate active client")

// Repository handles persistence of clients and their contacts. Lookups that
// find nothing return an error wrapping sql.ErrNoRows.
type Repository interface {
	// CreateSchema creates the tables, sequences and indexes.
	CreateSchema(ctx context.Context) error

	// FindByID returns a client regardless of its deleted flag.
	FindByID(ctx context.Context, id int64) (*Client, error)

	// FindActiveByEmailAndSIN returns the active client owning the pair.
	FindActiveByEmailAndSIN(ctx context.Context, email, sin string) (*Client, error)

	// FindActiveByEmail returns the active client with the lowest ID for email.
	FindActiveByEmail(ctx context.Context, email string) (*Client, error)

	// FindActiveBySIN returns the active client with the lowest ID for sin.
	FindActiveBySIN(ctx context.Context, sin string) (*Client, error)

	// ListActive returns every active client sorted by name.
	ListActive(ctx context.Context) ([]*Client, error)

	// SearchActiveByName returns active clients whose name contains
	// fragment, ignoring case, sorted by name.
	SearchActiveByName(ctx context.Context, fragment string) ([]*Client, error)

	// ListActiveInCells returns active clients indexed in any of cells.
	ListActiveInCells(ctx context.Context, cells []int64) ([]*Client, error)

	// Save inserts the client when its ID is zero and updates it otherwise.
	// Contacts are not touched.
	Save(ctx context.Context, c *Client) error

	// SaveContacts inserts new contacts and updates known ones.
	SaveContacts(ctx context.Context, clientID int64, contacts []*AlternativeContact) error

	// InTx runs fn against a repository bound to a single transaction,
	// committing when fn returns nil.
	InTx(ctx context.Context, fn func(Repository) error) error

	// Ping checks the database connection.
	Ping(ctx context.Context) error
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type sqlRepository struct {
	db      *sql.DB
	q       querier
	inTx    bool
	dialect Dialect
	now     func() time.Time
}

// NewRepository creates a repository over db.
func NewRepository(db *sql.DB, dialect Dialect) Repository {
	return &sqlRepository{
		db:      db,
		q:       db,
		dialect: dialect,
		now:     func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}
}

const duckdbSchema = `
	CREATE SEQUENCE IF NOT EXISTS clients_seq START 1;

	CREATE TABLE IF NOT EXISTS clients (
		id BIGINT PRIMARY KEY DEFAULT nextval('clients_seq'),
		name VARCHAR NOT NULL,
		address VARCHAR NOT NULL,
		city VARCHAR NOT NULL,
		province VARCHAR NOT NULL,
		postal_code VARCHAR NOT NULL,
		country VARCHAR NOT NULL,
		ddi1 VARCHAR NOT NULL,
		phone_number1 VARCHAR NOT NULL,
		ddi2 VARCHAR NOT NULL DEFAULT '',
		phone_number2 VARCHAR NOT NULL DEFAULT '',
		email VARCHAR NOT NULL,
		sin_number VARCHAR NOT NULL,
		notes VARCHAR NOT NULL DEFAULT '',
		latitude DOUBLE,
		longitude DOUBLE,
		h3_cell BIGINT,
		deleted BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	CREATE SEQUENCE IF NOT EXISTS alternative_contacts_seq START 1;

	CREATE TABLE IF NOT EXISTS alternative_contacts (
		id BIGINT PRIMARY KEY DEFAULT nextval('alternative_contacts_seq'),
		client_id BIGINT NOT NULL,
		name VARCHAR NOT NULL,
		ddi VARCHAR NOT NULL,
		phone_number VARCHAR NOT NULL,
		email VARCHAR NOT NULL DEFAULT '',
		notes VARCHAR NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);
`

const postgresSchema = `
	CREATE TABLE IF NOT EXISTS clients (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		address TEXT NOT NULL,
		city TEXT NOT NULL,
		province TEXT NOT NULL,
		postal_code TEXT NOT NULL,
		country TEXT NOT NULL,
		ddi1 TEXT NOT NULL,
		phone_number1 TEXT NOT NULL,
		ddi2 TEXT NOT NULL DEFAULT '',
		phone_number2 TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL,
		sin_number TEXT NOT NULL,
		notes TEXT NOT NULL DEFAULT '',
		latitude DOUBLE PRECISION,
		longitude DOUBLE PRECISION,
		h3_cell BIGINT,
		deleted BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS clients_active_email_sin_key
		ON clients (email, sin_number) WHERE NOT deleted;

	CREATE INDEX IF NOT EXISTS clients_h3_cell_idx ON clients (h3_cell);

	CREATE TABLE IF NOT EXISTS alternative_contacts (
		id BIGSERIAL PRIMARY KEY,
		client_id BIGINT NOT NULL REFERENCES clients (id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		ddi TEXT NOT NULL,
		phone_number TEXT NOT NULL,
		email TEXT NOT NULL DEFAULT '',
		notes TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	);

	CREATE INDEX IF NOT EXISTS alternative_contacts_client_idx ON alternative_contacts (client_id);
`

func (r *sqlRepository) CreateSchema(ctx context.Context) error {
	schema := duckdbSchema
	if r.dialect == DialectPostgres {
		schema = postgresSchema
	}

	if _, err := r.q.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating clients schema: %w", err)
	}

	return nil
}

func (r *sqlRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *sqlRepository) InTx(ctx context.Context, fn func(Repository) error) error {
	if r.inTx {
		return fn(r)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	txRepo := &sqlRepository{db: r.db, q: tx, inTx: true, dialect: r.dialect, now: r.now}

	if err := fn(txRepo); err != nil {
		if rErr := tx.Rollback(); rErr != nil {
			return errors.Join(err, fmt.Errorf("rolling back: %w", rErr))
		}

		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}

const clientColumns = `
	id, name, address, city, province, postal_code, country,
	ddi1, phone_number1, ddi2, phone_number2, email, sin_number, notes,
	latitude, longitude, h3_cell, deleted, created_at, updated_at
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanClient(row rowScanner) (*Client, error) {
	var (
		c        Client
		lat, lng sql.NullFloat64
		cell     sql.NullInt64
	)

	if err := row.Scan(
		&c.ID, &c.Name, &c.Address, &c.City, &c.Province, &c.PostalCode, &c.Country,
		&c.DialCode1, &c.PhoneNumber1, &c.DialCode2, &c.PhoneNumber2, &c.Email, &c.SinNumber, &c.Notes,
		&lat, &lng, &cell, &c.Deleted, &c.CreatedAt, &c.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if lat.Valid && lng.Valid {
		c.Point = &spatial.Point{Lat: lat.Float64, Lng: lng.Float64}
	}

	c.Cell = cell.Int64

	return &c, nil
}

// findOne returns the first client matched by where, with its contacts.
func (r *sqlRepository) findOne(ctx context.Context, where string, args ...any) (*Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients WHERE ` + where + ` ORDER BY id LIMIT 1`

	c, err := scanClient(r.q.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}

		return nil, fmt.Errorf("querying client: %w", err)
	}

	if err := r.loadContacts(ctx, []*Client{c}); err != nil {
		return nil, err
	}

	return c, nil
}

// findMany returns every client matched by where, with contacts, sorted by
// name. The sort is done here so that ordering is byte-wise on every engine.
func (r *sqlRepository) findMany(ctx context.Context, where string, args ...any) ([]*Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients WHERE ` + where + ` ORDER BY id`

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying clients: %w", err)
	}
	defer rows.Close()

	result := []*Client{}

	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning client: %w", err)
		}

		result = append(result, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating clients: %w", err)
	}

	if err := r.loadContacts(ctx, result); err != nil {
		return nil, err
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})

	return result, nil
}

func placeholders(start, n int) string {
	ph := make([]string, n)
	for i := range ph {
		ph[i] = fmt.Sprintf("$%d", start+i)
	}

	return strings.Join(ph, ", ")
}

func (r *sqlRepository) loadContacts(ctx context.Context, clients []*Client) error {
	if len(clients) == 0 {
		return nil
	}

	byID := make(map[int64]*Client, len(clients))
	args := make([]any, 0, len(clients))

	for _, c := range clients {
		c.Contacts = []*AlternativeContact{}
		byID[c.ID] = c
		args = append(args, c.ID)
	}

	query := `
		SELECT id, client_id, name, ddi, phone_number, email, notes, created_at, updated_at
		FROM alternative_contacts
		WHERE client_id IN (` + placeholders(1, len(args)) + `)
		ORDER BY client_id, id
	`

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("querying contacts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ac AlternativeContact
		if err := rows.Scan(
			&ac.ID, &ac.ClientID, &ac.Name, &ac.DialCode, &ac.PhoneNumber,
			&ac.Email, &ac.Notes, &ac.CreatedAt, &ac.UpdatedAt,
		); err != nil {
			return fmt.Errorf("scanning contact: %w", err)
		}

		if owner, ok := byID[ac.ClientID]; ok {
			owner.Contacts = append(owner.Contacts, &ac)
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating contacts: %w", err)
	}

	return nil
}

func (r *sqlRepository) FindByID(ctx context.Context, id int64) (*Client, error) {
	return r.findOne(ctx, `id = $1`, id)
}

func (r *sqlRepository) FindActiveByEmailAndSIN(ctx context.Context, email, sin string) (*Client, error) {
	return r.findOne(ctx, `email = $1 AND sin_number = $2 AND NOT deleted`, email, sin)
}

func (r *sqlRepository) FindActiveByEmail(ctx context.Context, email string) (*Client, error) {
	return r.findOne(ctx, `email = $1 AND NOT deleted`, email)
}

func (r *sqlRepository) FindActiveBySIN(ctx context.Context, sin string) (*Client, error) {
	return r.findOne(ctx, `sin_number = $1 AND NOT deleted`, sin)
}

func (r *sqlRepository) ListActive(ctx context.Context) ([]*Client, error) {
	return r.findMany(ctx, `NOT deleted`)
}

func (r *sqlRepository) SearchActiveByName(ctx context.Context, fragment string) ([]*Client, error) {
	if fragment == "" {
		return r.ListActive(ctx)
	}

	return r.findMany(ctx, `NOT deleted AND strpos(lower(name), lower($1)) > 0`, fragment)
}

func (r *sqlRepository) ListActiveInCells(ctx context.Context, cells []int64) ([]*Client, error) {
	if len(cells) == 0 {
		return []*Client{}, nil
	}

	args := make([]any, len(cells))
	for i, c := range cells {
		args[i] = c
	}

	return r.findMany(ctx, `NOT deleted AND h3_cell IN (`+placeholders(1, len(cells))+`)`, args...)
}

func nullablePoint(p *spatial.Point) (lat, lng sql.NullFloat64) {
	if p == nil {
		return lat, lng
	}

	return sql.NullFloat64{Float64: p.Lat, Valid: true}, sql.NullFloat64{Float64: p.Lng, Valid: true}
}

func nullableCell(c *Client) sql.NullInt64 {
	if c.Point == nil || c.Cell == 0 {
		return sql.NullInt64{}
	}

	return sql.NullInt64{Int64: c.Cell, Valid: true}
}

func (r *sqlRepository) Save(ctx context.Context, c *Client) error {
	lat, lng := nullablePoint(c.Point)
	now := r.now()

	if c.ID == 0 {
		c.CreatedAt, c.UpdatedAt = now, now

		err := r.q.QueryRowContext(ctx, `
			INSERT INTO clients (
				name, address, city, province, postal_code, country,
				ddi1, phone_number1, ddi2, phone_number2, email, sin_number, notes,
				latitude, longitude, h3_cell, deleted, created_at, updated_at
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
			RETURNING id
		`,
			c.Name, c.Address, c.City, c.Province, c.PostalCode, c.Country,
			c.DialCode1, c.PhoneNumber1, c.DialCode2, c.PhoneNumber2, c.Email, c.SinNumber, c.Notes,
			lat, lng, nullableCell(c), c.Deleted, c.CreatedAt, c.UpdatedAt,
		).Scan(&c.ID)
		if err != nil {
			return r.saveError("inserting client", err)
		}

		return nil
	}

	c.UpdatedAt = now

	res, err := r.q.ExecContext(ctx, `
		UPDATE clients
		SET name = $1, address = $2, city = $3, province = $4, postal_code = $5, country = $6,
		    ddi1 = $7, phone_number1 = $8, ddi2 = $9, phone_number2 = $10, email = $11,
		    sin_number = $12, notes = $13, latitude = $14, longitude = $15, h3_cell = $16,
		    deleted = $17, updated_at = $18
		WHERE id = $19
	`,
		c.Name, c.Address, c.City, c.Province, c.PostalCode, c.Country,
		c.DialCode1, c.PhoneNumber1, c.DialCode2, c.PhoneNumber2, c.Email,
		c.SinNumber, c.Notes, lat, lng, nullableCell(c),
		c.Deleted, c.UpdatedAt, c.ID,
	)
	if err != nil {
		return r.saveError("updating client", err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("updating client %d: %w", c.ID, sql.ErrNoRows)
	}

	return nil
}

func (r *sqlRepository) saveError(action string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
		return fmt.Errorf("%s: %w", action, ErrDuplicate)
	}

	return fmt.Errorf("%s: %w", action, err)
}

func (r *sqlRepository) SaveContacts(ctx context.Context, clientID int64, contacts []*AlternativeContact) error {
	now := r.now()

	for _, ac := range contacts {
		ac.ClientID = clientID
		ac.UpdatedAt = now

		if ac.ID == 0 {
			ac.CreatedAt = now

			err := r.q.QueryRowContext(ctx, `
				INSERT INTO alternative_contacts (
					client_id, name, ddi, phone_number, email, notes, created_at, updated_at
				)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
				RETURNING id
			`,
				clientID, ac.Name, ac.DialCode, ac.PhoneNumber, ac.Email, ac.Notes, ac.CreatedAt, ac.UpdatedAt,
			).Scan(&ac.ID)
			if err != nil {
				return fmt.Errorf("inserting contact for client %d: %w", clientID, err)
			}

			continue
		}

		if _, err := r.q.ExecContext(ctx, `
			UPDATE alternative_contacts
			SET name = $1, ddi = $2, phone_number = $3, email = $4, notes = $5, updated_at = $6
			WHERE id = $7 AND client_id = $8
		`,
			ac.Name, ac.DialCode, ac.PhoneNumber, ac.Email, ac.Notes, ac.UpdatedAt, ac.ID, clientID,
		); err != nil {
			return fmt.Errorf("updating contact %d: %w", ac.ID, err)
		}
	}

	return nil
}
