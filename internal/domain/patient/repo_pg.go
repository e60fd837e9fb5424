package patient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn() queryable { return r.pool }

// The full record lives in the JSONB column; name, OPD/IPD number and contact
// are copied out for indexing.
func (r *repoPG) Save(ctx context.Context, rec *Record) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode patient %s: %w", rec.ID, err)
	}
	_, err = r.conn().Exec(ctx, `
		INSERT INTO patients (id, name, opd_ipd_no, contact, record, created_at, saved_at)
		VALUES ($1,$2,$3,$4,$5,$6,NOW())
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, opd_ipd_no = EXCLUDED.opd_ipd_no,
			contact = EXCLUDED.contact, record = EXCLUDED.record, saved_at = NOW()`,
		rec.ID, rec.Demographics.Name, rec.Demographics.OPDIPDNo, rec.Demographics.Contact,
		raw, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("save patient %s: %w", rec.ID, err)
	}
	return nil
}

func (r *repoPG) Get(ctx context.Context, id string) (*Record, error) {
	var raw []byte
	err := r.conn().QueryRow(ctx, `SELECT record FROM patients WHERE id = $1`, id).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get patient %s: %w", id, err)
	}
	return decodeRecord(raw)
}

func (r *repoPG) List(ctx context.Context) ([]*Record, error) {
	rows, err := r.conn().Query(ctx, `SELECT record FROM patients ORDER BY saved_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list patients: %w", err)
	}
	defer rows.Close()

	out := []*Record{}
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan patient: %w", err)
		}
		rec, err := decodeRecord(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *repoPG) Delete(ctx context.Context, id string) error {
	_, err := r.conn().Exec(ctx, `DELETE FROM patients WHERE id = $1`, id)
	return err
}

func (r *repoPG) DeleteMany(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.conn().Exec(ctx, `DELETE FROM patients WHERE id = ANY($1)`, ids)
	return err
}

func (r *repoPG) Clear(ctx context.Context) error {
	_, err := r.conn().Exec(ctx, `DELETE FROM patients`)
	return err
}

func (r *repoPG) Size(ctx context.Context) (int64, error) {
	var n int64
	err := r.conn().QueryRow(ctx,
		`SELECT COALESCE(SUM(octet_length(record::text)), 0) FROM patients`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("measure patient storage: %w", err)
	}
	return n, nil
}
