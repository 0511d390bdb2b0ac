package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

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

type batchRepoPG struct{ pool *pgxpool.Pool }

func NewBatchRepoPG(pool *pgxpool.Pool) BatchRepository {
	return &batchRepoPG{pool: pool}
}

func (r *batchRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const batchCols = `id, drug_id, batch_number, quantity, unit_price,
	expiry_date, manufacturing_date,
	supplier_name, supplier_contact, supplier_email,
	location_room, location_section, location_shelf,
	minimum_stock, status, created_at, updated_at`

func scanBatch(row pgx.Row) (*Batch, error) {
	var b Batch
	err := row.Scan(&b.ID, &b.DrugID, &b.BatchNumber, &b.Quantity, &b.UnitPrice,
		&b.ExpiryDate, &b.ManufacturingDate,
		&b.Supplier.Name, &b.Supplier.Contact, &b.Supplier.Email,
		&b.Location.Room, &b.Location.Section, &b.Location.Shelf,
		&b.MinimumStock, &b.Status, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.NotFound("inventory batch")
	}
	return &b, err
}

// mapWriteErr translates constraint violations into the domain error taxonomy.
func mapWriteErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return apperror.Conflict("batch number already exists for this drug")
		case "23503":
			return apperror.NotFound("drug")
		}
	}
	return err
}

func (r *batchRepoPG) Create(ctx context.Context, b *Batch) error {
	b.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO inventory_batch (id, drug_id, batch_number, quantity, unit_price,
			expiry_date, manufacturing_date,
			supplier_name, supplier_contact, supplier_email,
			location_room, location_section, location_shelf,
			minimum_stock, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`,
		b.ID, b.DrugID, b.BatchNumber, b.Quantity, b.UnitPrice,
		b.ExpiryDate, b.ManufacturingDate,
		b.Supplier.Name, b.Supplier.Contact, b.Supplier.Email,
		b.Location.Room, b.Location.Section, b.Location.Shelf,
		b.MinimumStock, b.Status)
	if err != nil {
		return mapWriteErr(err)
	}
	return nil
}

func (r *batchRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Batch, error) {
	return scanBatch(r.conn(ctx).QueryRow(ctx, `SELECT `+batchCols+` FROM inventory_batch WHERE id = $1`, id))
}

func (r *batchRepoPG) Update(ctx context.Context, b *Batch) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE inventory_batch SET batch_number=$2, quantity=$3, unit_price=$4,
			expiry_date=$5, manufacturing_date=$6,
			supplier_name=$7, supplier_contact=$8, supplier_email=$9,
			location_room=$10, location_section=$11, location_shelf=$12,
			minimum_stock=$13, status=$14, updated_at=NOW()
		WHERE id = $1`,
		b.ID, b.BatchNumber, b.Quantity, b.UnitPrice,
		b.ExpiryDate, b.ManufacturingDate,
		b.Supplier.Name, b.Supplier.Contact, b.Supplier.Email,
		b.Location.Room, b.Location.Section, b.Location.Shelf,
		b.MinimumStock, b.Status)
	if err != nil {
		return mapWriteErr(err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound("inventory batch")
	}
	return nil
}

func (r *batchRepoPG) UpdateQuantityStatus(ctx context.Context, id uuid.UUID, quantity int, status string) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE inventory_batch SET quantity=$2, status=$3, updated_at=NOW() WHERE id = $1`,
		id, quantity, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound("inventory batch")
	}
	return nil
}

func (r *batchRepoPG) SetStatus(ctx context.Context, id uuid.UUID, status string) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE inventory_batch SET status=$2, updated_at=NOW() WHERE id = $1`,
		id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound("inventory batch")
	}
	return nil
}

func (r *batchRepoPG) List(ctx context.Context, filter ListFilter, limit, offset int) ([]*Batch, int, error) {
	qb := query.New("inventory_batch", batchCols)
	if filter.DrugID != uuid.Nil {
		qb.Equal("drug_id", filter.DrugID)
	}
	if filter.Status != "" {
		qb.Equal("status", filter.Status)
	}
	if filter.Search != "" {
		qb.Search(filter.Search, "batch_number")
	}
	if filter.LowStock {
		qb.Where("quantity <= minimum_stock")
	}
	if !filter.ExpiringBefore.IsZero() {
		qb.Until("expiry_date", filter.ExpiringBefore)
	}
	qb.OrderBy("expiry_date ASC")

	var total int
	if err := r.conn(ctx).QueryRow(ctx, qb.CountSQL(), qb.CountArgs()...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx, qb.DataSQL(), qb.DataArgs(limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return collectBatches(rows, total)
}

func (r *batchRepoPG) ListForDispense(ctx context.Context, drugID uuid.UUID, now time.Time) ([]*Batch, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+batchCols+` FROM inventory_batch
		WHERE drug_id = $1 AND quantity > 0
			AND status != 'recalled' AND expiry_date > $2
		ORDER BY expiry_date ASC
		FOR UPDATE`, drugID, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items, _, err := collectBatches(rows, 0)
	return items, err
}

func (r *batchRepoPG) ListLowStock(ctx context.Context, limit, offset int) ([]*Batch, int, error) {
	return r.List(ctx, ListFilter{LowStock: true}, limit, offset)
}

func (r *batchRepoPG) ListExpiringBetween(ctx context.Context, from, to time.Time, limit, offset int) ([]*Batch, int, error) {
	qb := query.New("inventory_batch", batchCols)
	qb.Between("expiry_date", from, to)
	qb.Where(fmt.Sprintf("status != $%d", qb.Idx()), StatusRecalled)
	qb.OrderBy("expiry_date ASC")

	var total int
	if err := r.conn(ctx).QueryRow(ctx, qb.CountSQL(), qb.CountArgs()...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx, qb.DataSQL(), qb.DataArgs(limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return collectBatches(rows, total)
}

func collectBatches(rows pgx.Rows, total int) ([]*Batch, int, error) {
	var items []*Batch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, b)
	}
	return items, total, rows.Err()
}
