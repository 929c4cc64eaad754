package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/rs/xid"

	"github.com/sakif/fieldfinder/internal/apperror"
	"github.com/sakif/fieldfinder/internal/model"
	"github.com/sakif/fieldfinder/internal/repository"
)

const tableFields = "fields"

var _ repository.FieldRepository = (*FieldRepository)(nil)

type FieldRepository struct {
	db *sql.DB
}

const (
	fieldFieldID          = "id"
	fieldFieldName        = "name"
	fieldFieldAddress     = "address"
	fieldFieldLat         = "lat"
	fieldFieldLng         = "lng"
	fieldFieldImage       = "image"
	fieldFieldGrassType   = "grass_type"
	fieldFieldShoeType    = "shoe_type"
	fieldFieldStatus      = "status"
	fieldFieldSubmittedBy = "submitted_by"
	fieldFieldCreatedAt   = "created_at"
)

func fieldColumns() []string {
	return []string{
		fieldFieldID,
		fieldFieldName,
		fieldFieldAddress,
		fieldFieldLat,
		fieldFieldLng,
		fieldFieldImage,
		fieldFieldGrassType,
		fieldFieldShoeType,
		fieldFieldStatus,
		fieldFieldSubmittedBy,
		fieldFieldCreatedAt,
	}
}

func scanField(row sq.RowScanner) (*model.Field, error) {
	var (
		f           model.Field
		submittedBy sql.NullString
	)

	err := row.Scan(
		&f.ID,
		&f.Name,
		&f.Address,
		&f.Lat,
		&f.Lng,
		&f.Image,
		&f.GrassType,
		&f.ShoeType,
		&f.Status,
		&submittedBy,
		&f.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	f.SubmittedBy = submittedBy.String

	return &f, nil
}

// Create inserts a field. A field without a status is stored as PENDING.
func (r *FieldRepository) Create(ctx context.Context, field *model.Field) error {
	field.ID = xid.New().String()
	field.CreatedAt = time.Now().UTC()
	if field.Status == "" {
		field.Status = model.FieldPending
	}

	q := sq.Insert(tableFields).
		Columns(fieldColumns()...).
		Values(
			field.ID,
			field.Name,
			field.Address,
			field.Lat,
			field.Lng,
			field.Image,
			field.GrassType,
			field.ShoeType,
			field.Status,
			nullString(field.SubmittedBy),
			field.CreatedAt,
		).
		RunWith(r.db)

	if _, err := q.ExecContext(ctx); err != nil {
		return fmt.Errorf("sqlite: inserting field %q: %w", field.Name, err)
	}

	return nil
}

func (r *FieldRepository) GetByID(ctx context.Context, id string) (*model.Field, error) {
	row := sq.Select(fieldColumns()...).
		From(tableFields).
		Where(sq.Eq{fieldFieldID: id}).
		RunWith(r.db).
		QueryRowContext(ctx)

	f, err := scanField(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("field", id)
		}
		return nil, fmt.Errorf("sqlite: getting field %s: %w", id, err)
	}

	return f, nil
}

// List returns fields in submission order, optionally filtered by status.
func (r *FieldRepository) List(ctx context.Context, filter repository.FieldFilter) ([]model.Field, error) {
	q := sq.Select(fieldColumns()...).
		From(tableFields).
		OrderBy(fieldFieldID + " ASC")

	if filter.Status != "" {
		q = q.Where(sq.Eq{fieldFieldStatus: filter.Status})
	}

	return r.query(ctx, q)
}

// Search matches approved fields by name or address. LIKE wildcards in the
// keyword are escaped so "%" matches a literal percent sign.
func (r *FieldRepository) Search(ctx context.Context, keyword string) ([]model.Field, error) {
	keyword = strings.ToLower(strings.TrimSpace(keyword))
	if keyword == "" {
		return []model.Field{}, nil
	}

	pattern := "%" + escapeLike(keyword) + "%"

	q := sq.Select(fieldColumns()...).
		From(tableFields).
		Where(sq.Eq{fieldFieldStatus: model.FieldApproved}).
		Where(sq.Or{
			sq.Expr("LOWER("+fieldFieldName+") LIKE ? ESCAPE '\\'", pattern),
			sq.Expr("LOWER("+fieldFieldAddress+") LIKE ? ESCAPE '\\'", pattern),
		}).
		OrderBy(fieldFieldID + " ASC")

	return r.query(ctx, q)
}

// SetStatus changes the status of a field. Returns apperror.ErrNotFound for
// an unknown ID.
func (r *FieldRepository) SetStatus(ctx context.Context, id string, status model.FieldStatus) error {
	res, err := sq.Update(tableFields).
		Set(fieldFieldStatus, status).
		Where(sq.Eq{fieldFieldID: id}).
		RunWith(r.db).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("sqlite: updating field %s status: %w", id, err)
	}

	return requireAffected(res, "field", id)
}

func (r *FieldRepository) query(ctx context.Context, q sq.SelectBuilder) ([]model.Field, error) {
	rows, err := q.RunWith(r.db).QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("sqlite: querying fields: %w", err)
	}
	defer closeRows(ctx, rows)

	fields := make([]model.Field, 0)

	for rows.Next() {
		f, err := scanField(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning field: %w", err)
		}
		fields = append(fields, *f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating fields: %w", err)
	}

	return fields, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
