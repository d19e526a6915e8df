package db

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"notifier/internal/domain"
	"notifier/internal/types"
)

const templateColumns = `id, name, channel, subject, body, is_active, created_at, updated_at`

// TemplateStore implements domain.TemplateStore on PostgreSQL. The unique
// index on name enforces the system-wide name uniqueness the Template entity
// delegates to its store.
type TemplateStore struct {
	db DBTX
}

// NewTemplateStore creates a TemplateStore backed by the given database
// handle (pool or transaction).
func NewTemplateStore(db DBTX) *TemplateStore {
	return &TemplateStore{db: db}
}

// Get loads a template by ID.
func (s *TemplateStore) Get(ctx context.Context, id string) (*domain.Template, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+templateColumns+` FROM templates WHERE id = $1`, id)
	return s.scanOne(row, map[string]any{"id": id})
}

// GetByName loads a template by its normalized unique name.
func (s *TemplateStore) GetByName(ctx context.Context, name string) (*domain.Template, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	row := s.db.QueryRow(ctx,
		`SELECT `+templateColumns+` FROM templates WHERE name = $1`, normalized)
	return s.scanOne(row, map[string]any{"name": normalized})
}

// ListByChannel returns all templates for a channel, newest first.
func (s *TemplateStore) ListByChannel(ctx context.Context, channel types.Channel, p types.ListParams) ([]*domain.Template, error) {
	return s.list(ctx,
		`SELECT `+templateColumns+`
		 FROM templates WHERE channel = $1
		 ORDER BY created_at DESC LIMIT $2 OFFSET $3`, channel, p)
}

// ListActiveByChannel returns the active templates for a channel, newest
// first.
func (s *TemplateStore) ListActiveByChannel(ctx context.Context, channel types.Channel, p types.ListParams) ([]*domain.Template, error) {
	return s.list(ctx,
		`SELECT `+templateColumns+`
		 FROM templates WHERE channel = $1 AND is_active
		 ORDER BY created_at DESC LIMIT $2 OFFSET $3`, channel, p)
}

// Add persists a new template. A duplicate name surfaces as a conflict.
func (s *TemplateStore) Add(ctx context.Context, t *domain.Template) error {
	snap := t.Snapshot()
	_, err := s.db.Exec(ctx,
		`INSERT INTO templates
		 (id, name, channel, subject, body, is_active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		snap.ID,
		snap.Name,
		string(snap.Channel),
		nilIfEmpty(snap.Subject),
		snap.Body,
		snap.IsActive,
		snap.CreatedAt,
		snap.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return types.NewAppErrorWithDetails(types.ErrCodeConflictTemplateName,
			"a template with this name already exists", err,
			map[string]any{"name": snap.Name})
	}
	if err != nil {
		return dbError("failed to insert template", err)
	}
	return nil
}

// Update persists content or activation changes.
func (s *TemplateStore) Update(ctx context.Context, t *domain.Template) error {
	snap := t.Snapshot()
	tag, err := s.db.Exec(ctx,
		`UPDATE templates SET
		   subject = $1, body = $2, is_active = $3, updated_at = $4
		 WHERE id = $5`,
		nilIfEmpty(snap.Subject),
		snap.Body,
		snap.IsActive,
		snap.UpdatedAt,
		snap.ID,
	)
	if err != nil {
		return dbError("failed to update template", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppErrorWithDetails(types.ErrCodeNotFoundTemplate,
			"template not found", nil, map[string]any{"id": snap.ID})
	}
	return nil
}

func (s *TemplateStore) list(ctx context.Context, query string, channel types.Channel, p types.ListParams) ([]*domain.Template, error) {
	p = p.Normalize()
	rows, err := s.db.Query(ctx, query, string(channel), p.Limit, p.Offset)
	if err != nil {
		return nil, dbError("failed to list templates", err)
	}
	defer rows.Close()

	var out []*domain.Template
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, dbError("failed to scan template row", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError("failed to iterate template rows", err)
	}
	return out, nil
}

func (s *TemplateStore) scanOne(row pgx.Row, details map[string]any) (*domain.Template, error) {
	t, err := scanTemplate(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, types.NewAppErrorWithDetails(types.ErrCodeNotFoundTemplate,
			"template not found", err, details)
	}
	if err != nil {
		return nil, dbError("failed to load template", err)
	}
	return t, nil
}

func scanTemplate(row pgx.Row) (*domain.Template, error) {
	var (
		snap    domain.TemplateSnapshot
		channel string
		subject *string
	)
	err := row.Scan(
		&snap.ID,
		&snap.Name,
		&channel,
		&subject,
		&snap.Body,
		&snap.IsActive,
		&snap.CreatedAt,
		&snap.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	snap.Channel = types.Channel(channel)
	if subject != nil {
		snap.Subject = *subject
	}
	return domain.RestoreTemplate(snap), nil
}
