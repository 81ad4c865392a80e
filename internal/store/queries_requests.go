// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/openeuropa/oe-translation-sub001/internal/model"
)

// CreateRequestParams holds the fields needed to persist a new translation request.
type CreateRequestParams struct {
	ID             string
	ProviderKind   string
	EntityType     string
	EntityID       int64
	RevisionID     int64
	SourceLanguage string
	ProviderRef    string
	EPoetry        *model.EPoetryState
	CDT            *model.CDTState
	Langcodes      []string
}

// CreateRequest inserts a request and its language rows, all status=requested.
func (q *Queries) CreateRequest(ctx context.Context, p CreateRequestParams) error {
	state, err := marshalProviderState(p.EPoetry, p.CDT)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	_, err = q.db.ExecContext(ctx, `
		INSERT INTO translation_requests
			(id, provider_kind, entity_type, entity_id, revision_id, source_language,
			 request_status, provider_ref, provider_state, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.ProviderKind, p.EntityType, p.EntityID, p.RevisionID, p.SourceLanguage,
		model.RequestStatusRequested, p.ProviderRef, state, now, now)
	if err != nil {
		return fmt.Errorf("inserting request: %w", err)
	}

	for i, langcode := range p.Langcodes {
		_, err = q.db.ExecContext(ctx, `
			INSERT INTO request_languages (request_id, langcode, status, weight, updated_at)
			VALUES (?, ?, ?, ?, ?)`,
			p.ID, langcode, model.LanguageStatusRequested, i, now)
		if err != nil {
			return fmt.Errorf("inserting request language %s: %w", langcode, err)
		}
	}
	return nil
}

// GetRequest loads a request with its language rows.
func (q *Queries) GetRequest(ctx context.Context, id string) (*model.TranslationRequest, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT id, provider_kind, entity_type, entity_id, revision_id, source_language,
		       request_status, provider_state, created_at, updated_at
		FROM translation_requests WHERE id = ?`, id)
	return q.scanRequest(ctx, row)
}

// GetRequestByProviderRef loads the most recent request a provider reference
// points at. Providers address callbacks by their own dossier/ticket key, not
// by request ID.
func (q *Queries) GetRequestByProviderRef(ctx context.Context, providerKind, ref string) (*model.TranslationRequest, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT id, provider_kind, entity_type, entity_id, revision_id, source_language,
		       request_status, provider_state, created_at, updated_at
		FROM translation_requests
		WHERE provider_kind = ? AND provider_ref = ?
		ORDER BY created_at DESC LIMIT 1`, providerKind, ref)
	return q.scanRequest(ctx, row)
}

// ListActiveRequests returns requests that have not reached a terminal status.
func (q *Queries) ListActiveRequests(ctx context.Context) ([]*model.TranslationRequest, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, provider_kind, entity_type, entity_id, revision_id, source_language,
		       request_status, provider_state, created_at, updated_at
		FROM translation_requests
		WHERE request_status IN (?, ?)
		ORDER BY created_at`, model.RequestStatusRequested, model.RequestStatusTranslated)
	if err != nil {
		return nil, fmt.Errorf("listing active requests: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var requests []*model.TranslationRequest
	for rows.Next() {
		req, err := scanRequestRow(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating requests: %w", err)
	}

	for _, req := range requests {
		langs, err := q.ListRequestLanguages(ctx, req.ID)
		if err != nil {
			return nil, err
		}
		req.Languages = langs
	}
	return requests, nil
}

// UpdateRequestStatus sets the aggregate status of a request.
func (q *Queries) UpdateRequestStatus(ctx context.Context, id, status string) error {
	res, err := q.db.ExecContext(ctx, `
		UPDATE translation_requests SET request_status = ?, updated_at = ? WHERE id = ?`,
		status, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("updating request status: %w", err)
	}
	return requireRowAffected(res, "request", id)
}

// UpdateProviderState replaces the provider-specific state blob and reference.
func (q *Queries) UpdateProviderState(ctx context.Context, req *model.TranslationRequest) error {
	state, err := marshalProviderState(req.EPoetry, req.CDT)
	if err != nil {
		return err
	}
	res, err := q.db.ExecContext(ctx, `
		UPDATE translation_requests SET provider_state = ?, provider_ref = ?, updated_at = ?
		WHERE id = ?`,
		state, req.ProviderReference(), time.Now().UTC(), req.ID)
	if err != nil {
		return fmt.Errorf("updating provider state: %w", err)
	}
	return requireRowAffected(res, "request", req.ID)
}

// ListRequestLanguages returns the language rows of a request in submission order.
func (q *Queries) ListRequestLanguages(ctx context.Context, requestID string) ([]model.LanguageJob, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT request_id, langcode, status, weight, updated_at
		FROM request_languages WHERE request_id = ? ORDER BY weight`, requestID)
	if err != nil {
		return nil, fmt.Errorf("listing request languages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var langs []model.LanguageJob
	for rows.Next() {
		var j model.LanguageJob
		if err := rows.Scan(&j.RequestID, &j.Langcode, &j.Status, &j.Weight, &j.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning request language: %w", err)
		}
		langs = append(langs, j)
	}
	return langs, rows.Err()
}

// UpdateLanguageStatus sets the status of one target language.
func (q *Queries) UpdateLanguageStatus(ctx context.Context, requestID, langcode, status string) error {
	res, err := q.db.ExecContext(ctx, `
		UPDATE request_languages SET status = ?, updated_at = ?
		WHERE request_id = ? AND langcode = ?`,
		status, time.Now().UTC(), requestID, langcode)
	if err != nil {
		return fmt.Errorf("updating language status: %w", err)
	}
	return requireRowAffected(res, "request language", requestID+"/"+langcode)
}

// SetLanguagePayload stores the delivered field-tree snapshot for a language.
func (q *Queries) SetLanguagePayload(ctx context.Context, requestID, langcode string, payload map[string]string) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling payload: %w", err)
	}
	res, err := q.db.ExecContext(ctx, `
		UPDATE request_languages SET payload = ?, updated_at = ?
		WHERE request_id = ? AND langcode = ?`,
		string(data), time.Now().UTC(), requestID, langcode)
	if err != nil {
		return fmt.Errorf("storing language payload: %w", err)
	}
	return requireRowAffected(res, "request language", requestID+"/"+langcode)
}

// GetLanguagePayload loads the delivered snapshot for a language. Returns nil
// when the provider has not delivered the language yet.
func (q *Queries) GetLanguagePayload(ctx context.Context, requestID, langcode string) (map[string]string, error) {
	var raw sql.NullString
	err := q.db.QueryRowContext(ctx, `
		SELECT payload FROM request_languages WHERE request_id = ? AND langcode = ?`,
		requestID, langcode).Scan(&raw)
	if err != nil {
		return nil, fmt.Errorf("loading language payload: %w", err)
	}
	if !raw.Valid || raw.String == "" {
		return nil, nil
	}
	var payload map[string]string
	if err := json.Unmarshal([]byte(raw.String), &payload); err != nil {
		return nil, fmt.Errorf("unmarshaling language payload: %w", err)
	}
	return payload, nil
}

// AppendRequestLog adds one entry to a request's append-only audit trail.
func (q *Queries) AppendRequestLog(ctx context.Context, entry model.LogEntry) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO request_log (request_id, type, actor, message, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		entry.RequestID, entry.Type, entry.Actor, entry.Message, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("appending request log: %w", err)
	}
	return nil
}

// ListRequestLog returns a request's audit trail, oldest first.
func (q *Queries) ListRequestLog(ctx context.Context, requestID string) ([]model.LogEntry, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, request_id, type, actor, message, created_at
		FROM request_log WHERE request_id = ? ORDER BY id`, requestID)
	if err != nil {
		return nil, fmt.Errorf("listing request log: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []model.LogEntry
	for rows.Next() {
		var e model.LogEntry
		if err := rows.Scan(&e.ID, &e.RequestID, &e.Type, &e.Actor, &e.Message, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning log entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (q *Queries) scanRequest(ctx context.Context, row *sql.Row) (*model.TranslationRequest, error) {
	req, err := scanRequestRow(row)
	if err != nil {
		return nil, err
	}
	langs, err := q.ListRequestLanguages(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	req.Languages = langs
	return req, nil
}

func scanRequestRow(row rowScanner) (*model.TranslationRequest, error) {
	var req model.TranslationRequest
	var state string
	err := row.Scan(&req.ID, &req.ProviderKind, &req.ContentRef.EntityType,
		&req.ContentRef.EntityID, &req.ContentRef.RevisionID, &req.SourceLanguage,
		&req.RequestStatus, &state, &req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := unmarshalProviderState(&req, state); err != nil {
		return nil, err
	}
	return &req, nil
}

// providerState is the persisted shape of the per-provider variant.
type providerState struct {
	EPoetry *model.EPoetryState `json:"epoetry,omitempty"`
	CDT     *model.CDTState     `json:"cdt,omitempty"`
}

func marshalProviderState(ep *model.EPoetryState, cdt *model.CDTState) (string, error) {
	data, err := json.Marshal(providerState{EPoetry: ep, CDT: cdt})
	if err != nil {
		return "", fmt.Errorf("marshaling provider state: %w", err)
	}
	return string(data), nil
}

func unmarshalProviderState(req *model.TranslationRequest, raw string) error {
	var state providerState
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return fmt.Errorf("unmarshaling provider state: %w", err)
	}
	req.EPoetry = state.EPoetry
	req.CDT = state.CDT
	return nil
}

func requireRowAffected(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, sql.ErrNoRows)
	}
	return nil
}
