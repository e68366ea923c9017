package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bankfeed-dev/bankfeed/internal/model"
)

// LookupTemplate returns the mapping template for a fingerprint, or
// ErrNotFound when the layout has not been seen before.
func (s *Store) LookupTemplate(ctx context.Context, fingerprint string) (model.MappingTemplate, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, fingerprint, name, mapping_json, use_count, created_at, last_used_at
		FROM mapping_templates WHERE fingerprint = ?`, fingerprint)

	var tmpl model.MappingTemplate
	var mappingJSON string
	err := row.Scan(&tmpl.ID, &tmpl.Fingerprint, &tmpl.Name, &mappingJSON,
		&tmpl.UseCount, &tmpl.CreatedAt, &tmpl.LastUsedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.MappingTemplate{}, ErrNotFound
	}
	if err != nil {
		return model.MappingTemplate{}, fmt.Errorf("looking up template: %w", err)
	}
	if err := json.Unmarshal([]byte(mappingJSON), &tmpl.Mapping); err != nil {
		return model.MappingTemplate{}, fmt.Errorf("decoding template mapping: %w", err)
	}
	return tmpl, nil
}

// SaveTemplate stores a confirmed mapping for a fingerprint and returns the
// template ID. An existing template for the same fingerprint is left alone:
// templates are never mutated in place.
func (s *Store) SaveTemplate(ctx context.Context, fingerprint string, mapping model.ColumnMapping, name string) (string, error) {
	if name == "" {
		name = fmt.Sprintf("Layout %s", fingerprint)
	}
	mappingJSON, err := json.Marshal(mapping)
	if err != nil {
		return "", fmt.Errorf("encoding mapping: %w", err)
	}

	id := uuid.NewString()
	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO mapping_templates (id, fingerprint, name, mapping_json, use_count, created_at, last_used_at)
		VALUES (?, ?, ?, ?, 0, ?, ?)
		ON CONFLICT(fingerprint) DO NOTHING`,
		id, fingerprint, name, string(mappingJSON), now, now)
	if err != nil {
		return "", fmt.Errorf("saving template: %w", err)
	}

	// The insert may have been a no-op; report the stored template's ID.
	existing, err := s.LookupTemplate(ctx, fingerprint)
	if err != nil {
		return "", err
	}
	return existing.ID, nil
}

// TouchTemplate bumps a template's use count and last-used marker.
func (s *Store) TouchTemplate(ctx context.Context, fingerprint string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE mapping_templates SET use_count = use_count + 1, last_used_at = ?
		WHERE fingerprint = ?`, time.Now().UTC(), fingerprint)
	if err != nil {
		return fmt.Errorf("touching template: %w", err)
	}
	return nil
}

// ListTemplates returns all stored templates, most recently used first.
func (s *Store) ListTemplates(ctx context.Context) ([]model.MappingTemplate, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, fingerprint, name, mapping_json, use_count, created_at, last_used_at
		FROM mapping_templates ORDER BY last_used_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing templates: %w", err)
	}
	defer rows.Close()

	var templates []model.MappingTemplate
	for rows.Next() {
		var tmpl model.MappingTemplate
		var mappingJSON string
		if err := rows.Scan(&tmpl.ID, &tmpl.Fingerprint, &tmpl.Name, &mappingJSON,
			&tmpl.UseCount, &tmpl.CreatedAt, &tmpl.LastUsedAt); err != nil {
			return nil, fmt.Errorf("scanning template: %w", err)
		}
		if err := json.Unmarshal([]byte(mappingJSON), &tmpl.Mapping); err != nil {
			return nil, fmt.Errorf("decoding template mapping: %w", err)
		}
		templates = append(templates, tmpl)
	}
	return templates, rows.Err()
}
