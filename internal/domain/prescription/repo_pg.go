package prescription

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

type prescriptionRepoPG struct{ pool *pgxpool.Pool }

func NewPrescriptionRepoPG(pool *pgxpool.Pool) PrescriptionRepository {
	return &prescriptionRepoPG{pool: pool}
}

func (r *prescriptionRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const prescriptionCols = `id, number, patient, doctor, prescription_date, status,
	dispensed_by, total_amount, insurance, notes, created_at, updated_at`

const lineCols = `id, prescription_id, drug_id, drug_name, dosage, frequency, duration,
	quantity, instructions, substitution_allowed, quantity_dispensed, batches`

func scanPrescription(row pgx.Row) (*Prescription, error) {
	var p Prescription
	err := row.Scan(&p.ID, &p.Number, &p.Patient, &p.Doctor, &p.PrescriptionDate, &p.Status,
		&p.DispensedBy, &p.TotalAmount, &p.Insurance, &p.Notes, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.NotFound("prescription")
	}
	return &p, err
}

func scanLine(row pgx.Row) (*MedicationLine, error) {
	var l MedicationLine
	err := row.Scan(&l.ID, &l.PrescriptionID, &l.DrugID, &l.DrugName, &l.Dosage, &l.Frequency,
		&l.Duration, &l.Quantity, &l.Instructions, &l.SubstitutionAllowed,
		&l.QuantityDispensed, &l.Batches)
	return &l, err
}

func (r *prescriptionRepoPG) Create(ctx context.Context, p *Prescription) error {
	p.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO prescription (id, number, patient, doctor, prescription_date, status,
			total_amount, insurance, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		p.ID, p.Number, p.Patient, p.Doctor, p.PrescriptionDate, p.Status,
		p.TotalAmount, p.Insurance, p.Notes)
	if err != nil {
		return err
	}
	for i := range p.Medications {
		l := &p.Medications[i]
		l.ID = uuid.New()
		l.PrescriptionID = p.ID
		_, err := r.conn(ctx).Exec(ctx, `
			INSERT INTO prescription_medication (id, prescription_id, drug_id, drug_name,
				dosage, frequency, duration, quantity, instructions,
				substitution_allowed, quantity_dispensed, batches)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
			l.ID, l.PrescriptionID, l.DrugID, l.DrugName,
			l.Dosage, l.Frequency, l.Duration, l.Quantity, l.Instructions,
			l.SubstitutionAllowed, l.QuantityDispensed, l.Batches)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *prescriptionRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Prescription, error) {
	p, err := scanPrescription(r.conn(ctx).QueryRow(ctx,
		`SELECT `+prescriptionCols+` FROM prescription WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	if err := r.loadLines(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *prescriptionRepoPG) loadLines(ctx context.Context, p *Prescription) error {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+lineCols+` FROM prescription_medication
		WHERE prescription_id = $1 ORDER BY id`, p.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		l, err := scanLine(rows)
		if err != nil {
			return err
		}
		p.Medications = append(p.Medications, *l)
	}
	return rows.Err()
}

func (r *prescriptionRepoPG) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE prescription SET status=$2, updated_at=NOW() WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound("prescription")
	}
	return nil
}

func (r *prescriptionRepoPG) RecordDispense(ctx context.Context, p *Prescription) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE prescription SET status=$2, dispensed_by=$3, updated_at=NOW()
		WHERE id = $1`,
		p.ID, p.Status, p.DispensedBy)
	if err != nil {
		return err
	}
	for i := range p.Medications {
		l := &p.Medications[i]
		_, err := r.conn(ctx).Exec(ctx, `
			UPDATE prescription_medication SET quantity_dispensed=$2, batches=$3
			WHERE id = $1`,
			l.ID, l.QuantityDispensed, l.Batches)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *prescriptionRepoPG) List(ctx context.Context, filter ListFilter, limit, offset int) ([]*Prescription, int, error) {
	qb := query.New("prescription", prescriptionCols)
	if filter.Status != "" {
		qb.Equal("status", filter.Status)
	}
	if filter.PatientID != "" {
		qb.Equal("patient->>'id'", filter.PatientID)
	}
	if filter.Search != "" {
		qb.Search(filter.Search, "number", "patient->>'name'")
	}
	if !filter.DateFrom.IsZero() {
		qb.From("prescription_date", filter.DateFrom)
	}
	if !filter.DateTo.IsZero() {
		qb.Until("prescription_date", filter.DateTo)
	}
	qb.OrderBy("prescription_date DESC")

	var total int
	if err := r.conn(ctx).QueryRow(ctx, qb.CountSQL(), qb.CountArgs()...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx, qb.DataSQL(), qb.DataArgs(limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Prescription
	for rows.Next() {
		p, err := scanPrescription(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	for _, p := range items {
		if err := r.loadLines(ctx, p); err != nil {
			return nil, 0, err
		}
	}
	return items, total, nil
}

func (r *prescriptionRepoPG) Count(ctx context.Context) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM prescription`).Scan(&n)
	return n, err
}
