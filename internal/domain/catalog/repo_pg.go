package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pharmd/pharmd/internal/platform/apperror"
	"github.com/pharmd/pharmd/internal/platform/db"
	"github.com/pharmd/pharmd/internal/platform/query"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type drugRepoPG struct{ pool *pgxpool.Pool }

func NewDrugRepoPG(pool *pgxpool.Pool) DrugRepository {
	return &drugRepoPG{pool: pool}
}

func (r *drugRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const drugCols = `id, name, generic_name, brand_name, dosage_form, strength,
	manufacturer, category, description, side_effects, contraindications,
	interactions, price, is_active, created_at, updated_at`

func scanDrug(row pgx.Row) (*Drug, error) {
	var d Drug
	err := row.Scan(&d.ID, &d.Name, &d.GenericName, &d.BrandName, &d.DosageForm, &d.Strength,
		&d.Manufacturer, &d.Category, &d.Description, &d.SideEffects, &d.Contraindications,
		&d.Interactions, &d.Price, &d.IsActive, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.NotFound("drug")
	}
	return &d, err
}

func (r *drugRepoPG) Create(ctx context.Context, d *Drug) error {
	d.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO drug (id, name, generic_name, brand_name, dosage_form, strength,
			manufacturer, category, description, side_effects, contraindications,
			interactions, price, is_active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		d.ID, d.Name, d.GenericName, d.BrandName, d.DosageForm, d.Strength,
		d.Manufacturer, d.Category, d.Description, d.SideEffects, d.Contraindications,
		d.Interactions, d.Price, d.IsActive)
	return err
}

func (r *drugRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Drug, error) {
	return scanDrug(r.conn(ctx).QueryRow(ctx, `SELECT `+drugCols+` FROM drug WHERE id = $1`, id))
}

func (r *drugRepoPG) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*Drug, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+drugCols+` FROM drug WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Drug
	for rows.Next() {
		d, err := scanDrug(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	return items, rows.Err()
}

func (r *drugRepoPG) Update(ctx context.Context, d *Drug) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE drug SET name=$2, generic_name=$3, brand_name=$4, dosage_form=$5,
			strength=$6, manufacturer=$7, category=$8, description=$9,
			side_effects=$10, contraindications=$11, interactions=$12,
			price=$13, is_active=$14, updated_at=NOW()
		WHERE id = $1`,
		d.ID, d.Name, d.GenericName, d.BrandName, d.DosageForm,
		d.Strength, d.Manufacturer, d.Category, d.Description,
		d.SideEffects, d.Contraindications, d.Interactions,
		d.Price, d.IsActive)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound("drug")
	}
	return nil
}

func (r *drugRepoPG) Deactivate(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE drug SET is_active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound("drug")
	}
	return nil
}

func (r *drugRepoPG) List(ctx context.Context, filter ListFilter, limit, offset int) ([]*Drug, int, error) {
	qb := query.New("drug", drugCols)
	if filter.Search != "" {
		qb.Search(filter.Search, "name", "generic_name", "brand_name")
	}
	if filter.Category != "" {
		qb.Equal("category", filter.Category)
	}
	if filter.DosageForm != "" {
		qb.Equal("dosage_form", filter.DosageForm)
	}
	switch filter.IsActive {
	case "all":
		// no filter
	case "false":
		qb.Equal("is_active", false)
	default:
		qb.Equal("is_active", true)
	}
	qb.OrderBy("name ASC")

	var total int
	if err := r.conn(ctx).QueryRow(ctx, qb.CountSQL(), qb.CountArgs()...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx, qb.DataSQL(), qb.DataArgs(limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Drug
	for rows.Next() {
		d, err := scanDrug(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, d)
	}
	return items, total, rows.Err()
}
