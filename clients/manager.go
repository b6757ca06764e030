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

	"github.com/bufalari/clientbook/geocoding"
	"github.com/bufalari/clientbook/spatial"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	msgAlreadyExists    = "A client with this email and SIN number already exists"
	msgGeocodingFailure = "Failed to retrieve coordinates for the client address"
)

// Manager implements the client operations on top of a Repository and a
// Geocoder.
type Manager struct {
	repo     Repository
	geocoder geocoding.Geocoder
	logger   *zap.Logger
	tracer   trace.Tracer
	newID    func() string
}

// NewManager creates a Manager.
func NewManager(repo Repository, geocoder geocoding.Geocoder, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Manager{
		repo:     repo,
		geocoder: geocoder,
		logger:   logger,
		tracer:   otel.Tracer("github.com/bufalari/clientbook/clients"),
		newID:    uuid.NewString,
	}
}

// operation carries the per-call correlation state.
type operation struct {
	traceID string
	log     *zap.Logger
	span    trace.Span
}

func (m *Manager) begin(ctx context.Context, name string) (context.Context, *operation) {
	traceID := m.newID()

	ctx, span := m.tracer.Start(ctx, "clients."+name,
		trace.WithAttributes(attribute.String("clientbook.trace_id", traceID)))

	return ctx, &operation{
		traceID: traceID,
		log:     m.logger.With(zap.String("trace_id", traceID), zap.String("op", name)),
		span:    span,
	}
}

// fail builds the error returned to the caller and records it.
func (op *operation) fail(kind Kind, msg string, cause error) *Error {
	e := &Error{Kind: kind, Message: msg, TraceID: op.traceID, Err: cause}

	fields := []zap.Field{zap.Stringer("kind", kind)}
	if cause != nil {
		fields = append(fields, zap.Error(cause))
	}

	if kind == KindInternal || kind == KindGeocodingFailure {
		op.log.Error(msg, fields...)
	} else {
		op.log.Warn(msg, fields...)
	}

	op.span.RecordError(e)
	op.span.SetStatus(codes.Error, kind.String())

	return e
}

// result normalizes any error leaving an operation into an *Error.
func (op *operation) result(err error) error {
	if err == nil {
		return nil
	}

	var e *Error
	if errors.As(err, &e) {
		return e
	}

	if errors.Is(err, ErrDuplicate) {
		return op.fail(KindAlreadyExists, msgAlreadyExists, err)
	}

	return op.fail(KindInternal, "Unexpected storage failure", err)
}

func (op *operation) end() {
	op.span.End()
}

func notFoundByID(id int64) string {
	return fmt.Sprintf("Client not found with ID: %d", id)
}

// ListActive returns all non-deleted clients sorted by name.
func (m *Manager) ListActive(ctx context.Context) ([]*ClientResponse, error) {
	ctx, op := m.begin(ctx, "list")
	defer op.end()

	op.log.Info("listing active clients")

	list, err := m.repo.ListActive(ctx)
	if err != nil {
		return nil, op.result(err)
	}

	op.log.Debug("listed active clients", zap.Int("count", len(list)))

	return newClientResponses(list), nil
}

// GetByID returns an active client.
func (m *Manager) GetByID(ctx context.Context, id int64) (*ClientResponse, error) {
	ctx, op := m.begin(ctx, "get")
	defer op.end()

	op.log.Info("fetching client", zap.Int64("client_id", id))

	c, err := m.repo.FindByID(ctx, id)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && c.Deleted) {
		return nil, op.fail(KindNotFound, notFoundByID(id), nil)
	}

	if err != nil {
		return nil, op.result(err)
	}

	return NewClientResponse(c), nil
}

// GetByEmail returns the active client registered with email.
func (m *Manager) GetByEmail(ctx context.Context, email string) (*ClientResponse, error) {
	ctx, op := m.begin(ctx, "get_by_email")
	defer op.end()

	op.log.Info("fetching client by email", zap.String("email", email))

	c, err := m.repo.FindActiveByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, op.fail(KindNotFound, "Client not found with email: "+email, nil)
	}

	if err != nil {
		return nil, op.result(err)
	}

	return NewClientResponse(c), nil
}

// GetBySinNumber returns the active client registered with sin.
func (m *Manager) GetBySinNumber(ctx context.Context, sin string) (*ClientResponse, error) {
	ctx, op := m.begin(ctx, "get_by_sin")
	defer op.end()

	op.log.Info("fetching client by SIN")

	c, err := m.repo.FindActiveBySIN(ctx, strings.TrimSpace(sin))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, op.fail(KindNotFound, "Client not found with SIN number: "+sin, nil)
	}

	if err != nil {
		return nil, op.result(err)
	}

	return NewClientResponse(c), nil
}

// SearchByName returns active clients whose name contains fragment,
// ignoring case, sorted by name.
func (m *Manager) SearchByName(ctx context.Context, fragment string) ([]*ClientResponse, error) {
	ctx, op := m.begin(ctx, "search")
	defer op.end()

	op.log.Info("searching clients by name", zap.String("fragment", fragment))

	list, err := m.repo.SearchActiveByName(ctx, fragment)
	if err != nil {
		return nil, op.result(err)
	}

	return newClientResponses(list), nil
}

// Create validates in, geocodes its address and persists the client with
// its contacts plus a synthesized main contact.
func (m *Manager) Create(ctx context.Context, in ClientInput) (*ClientResponse, error) {
	ctx, op := m.begin(ctx, "create")
	defer op.end()

	in.Normalize()
	op.log.Info("creating client", zap.String("email", in.Email))

	if msgs := Validate(&in); len(msgs) > 0 {
		return nil, op.fail(KindInvalidData, strings.Join(msgs, ", "), nil)
	}

	if err := m.ensureUnique(ctx, op, m.repo, in.Email, in.SinNumber, 0); err != nil {
		return nil, err
	}

	address := FormatAddress(in.Address, in.City, in.Province, in.PostalCode)
	op.log.Debug("geocoding address", zap.String("address", address))

	geo, err := m.geocoder.Geocode(ctx, address)
	if err != nil {
		op.log.Debug("geocoding rejected", zap.Stringer("geocoding_error", geocoding.TypeOf(err)))

		return nil, op.fail(KindGeocodingFailure, msgGeocodingFailure, err)
	}

	c := &Client{
		Name:         in.Name,
		Address:      in.Address,
		City:         in.City,
		Province:     in.Province,
		PostalCode:   in.PostalCode,
		Country:      in.Country,
		DialCode1:    in.DialCode1,
		PhoneNumber1: in.PhoneNumber1,
		DialCode2:    in.DialCode2,
		PhoneNumber2: in.PhoneNumber2,
		Email:        in.Email,
		SinNumber:    in.SinNumber,
		Notes:        in.Notes,
	}

	if err := c.SetPoint(geo.Point()); err != nil {
		return nil, op.fail(KindGeocodingFailure, msgGeocodingFailure, err)
	}

	err = m.repo.InTx(ctx, func(tx Repository) error {
		// the geocoding call ran outside the transaction
		if err := m.ensureUnique(ctx, op, tx, c.Email, c.SinNumber, 0); err != nil {
			return err
		}

		if err := tx.Save(ctx, c); err != nil {
			return err
		}

		c.Contacts = append(NewContacts(c.ID, in.AlternativeContacts), c.mainContact())

		return tx.SaveContacts(ctx, c.ID, c.Contacts)
	})
	if err != nil {
		return nil, op.result(err)
	}

	op.log.Info("client created",
		zap.Int64("client_id", c.ID),
		zap.Float64("lat", c.Point.Lat),
		zap.Float64("lng", c.Point.Lng),
		zap.Int("contacts", len(c.Contacts)),
	)

	return NewClientResponse(c), nil
}

// ensureUnique fails with AlreadyExists when an active client other than
// selfID owns the email and SIN pair.
func (m *Manager) ensureUnique(ctx context.Context, op *operation, repo Repository, email, sin string, selfID int64) error {
	existing, err := repo.FindActiveByEmailAndSIN(ctx, email, sin)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}

	if err != nil {
		return op.result(err)
	}

	if existing.ID == selfID {
		return nil
	}

	op.log.Info("duplicate email and SIN", zap.Int64("existing_id", existing.ID))

	return op.fail(KindAlreadyExists, msgAlreadyExists, nil)
}

// Update overwrites the mutable fields of a client and reconciles its
// contacts. Coordinates and SIN are never changed.
func (m *Manager) Update(ctx context.Context, id int64, in ClientInput) (*ClientResponse, error) {
	ctx, op := m.begin(ctx, "update")
	defer op.end()

	in.Normalize()
	op.log.Info("updating client", zap.Int64("client_id", id))

	var updated *Client

	err := m.repo.InTx(ctx, func(tx Repository) error {
		c, err := tx.FindByID(ctx, id)
		if errors.Is(err, sql.ErrNoRows) {
			return op.fail(KindNotFound, notFoundByID(id), nil)
		}

		if err != nil {
			return err
		}

		if msgs := Validate(&in); len(msgs) > 0 {
			return op.fail(KindInvalidData, strings.Join(msgs, ", "), nil)
		}

		if !c.Deleted && in.Email != c.Email {
			if err := m.ensureUnique(ctx, op, tx, in.Email, c.SinNumber, c.ID); err != nil {
				return err
			}
		}

		c.Name = in.Name
		c.Address = in.Address
		c.DialCode1 = in.DialCode1
		c.PhoneNumber1 = in.PhoneNumber1
		c.DialCode2 = in.DialCode2
		c.PhoneNumber2 = in.PhoneNumber2
		c.Email = in.Email
		c.Province = in.Province
		c.PostalCode = in.PostalCode
		c.City = in.City
		c.Country = in.Country
		c.Notes = in.Notes
		c.Contacts = ReconcileContacts(c.Contacts, in.AlternativeContacts, c.ID)

		if err := tx.Save(ctx, c); err != nil {
			return err
		}

		if err := tx.SaveContacts(ctx, c.ID, c.Contacts); err != nil {
			return err
		}

		updated = c

		return nil
	})
	if err != nil {
		return nil, op.result(err)
	}

	op.log.Info("client updated", zap.Int64("client_id", id), zap.Int("contacts", len(updated.Contacts)))

	return NewClientResponse(updated), nil
}

// SoftDelete marks a client as deleted. Deleting a deleted client succeeds.
func (m *Manager) SoftDelete(ctx context.Context, id int64) error {
	ctx, op := m.begin(ctx, "delete")
	defer op.end()

	op.log.Info("soft deleting client", zap.Int64("client_id", id))

	return op.result(m.setDeleted(ctx, op, id, true))
}

// Activate clears the deleted flag. Activating an active client succeeds.
// It fails with AlreadyExists when another active client now owns the same
// email and SIN number.
func (m *Manager) Activate(ctx context.Context, id int64) error {
	ctx, op := m.begin(ctx, "activate")
	defer op.end()

	op.log.Info("activating client", zap.Int64("client_id", id))

	return op.result(m.setDeleted(ctx, op, id, false))
}

func (m *Manager) setDeleted(ctx context.Context, op *operation, id int64, deleted bool) error {
	return m.repo.InTx(ctx, func(tx Repository) error {
		c, err := tx.FindByID(ctx, id)
		if errors.Is(err, sql.ErrNoRows) {
			return op.fail(KindNotFound, notFoundByID(id), nil)
		}

		if err != nil {
			return err
		}

		if !deleted && c.Deleted {
			if err := m.ensureUnique(ctx, op, tx, c.Email, c.SinNumber, c.ID); err != nil {
				return err
			}
		}

		c.Deleted = deleted

		return tx.Save(ctx, c)
	})
}

// Nearby returns active geocoded clients within rings H3 rings of p, closest
// first.
func (m *Manager) Nearby(ctx context.Context, p spatial.Point, rings int) ([]*NearbyClient, error) {
	ctx, op := m.begin(ctx, "nearby")
	defer op.end()

	op.log.Info("searching nearby clients", zap.Stringer("point", p), zap.Int("rings", rings))

	cells, err := spatial.Neighborhood(p, rings)
	if err != nil {
		return nil, op.fail(KindInvalidData, err.Error(), nil)
	}

	list, err := m.repo.ListActiveInCells(ctx, cells)
	if err != nil {
		return nil, op.result(err)
	}

	out := make([]*NearbyClient, 0, len(list))
	for _, c := range list {
		if c.Point == nil {
			continue
		}

		out = append(out, &NearbyClient{
			ClientResponse: *NewClientResponse(c),
			DistanceMeters: p.HaversineDistance(c.Point),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DistanceMeters < out[j].DistanceMeters
	})

	return out, nil
}
