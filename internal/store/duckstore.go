package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/invoice-intake/backend/internal/models"
	"github.com/invoice-intake/backend/internal/query"
	"github.com/marcboeker/go-duckdb"
)

// DuckStore keeps invoices in an in-memory DuckDB database and pushes list
// queries down to SQL. Nothing is written to disk.
type DuckStore struct {
	db       *sql.DB
	mu       sync.Mutex // serialises writers
	seq      atomic.Int64
	revision atomic.Uint64
}

const invoiceColumns = `id, file_name, file_size, client_name, amount, upload_date, status, file_path,
	processing_start_time, processing_end_time`

// NewDuckStore opens an empty in-memory database. threads <= 0 leaves the
// DuckDB default in place.
func NewDuckStore(threads int) (*DuckStore, error) {
	connector, err := duckdb.NewConnector("", func(execer driver.ExecerContext) error {
		pragmas := []string{"PRAGMA enable_progress_bar=false"}
		if threads > 0 {
			pragmas = append(pragmas, fmt.Sprintf("PRAGMA threads=%d", threads))
		}
		for _, pragma := range pragmas {
			if _, err := execer.ExecContext(context.Background(), pragma, nil); err != nil {
				return fmt.Errorf("executing %q: %w", pragma, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create DuckDB connector: %w", err)
	}

	db := sql.OpenDB(connector)

	_, err = db.Exec(`
		CREATE TABLE invoices (
			seq                   BIGINT NOT NULL,
			id                    VARCHAR PRIMARY KEY,
			file_name             VARCHAR NOT NULL,
			file_size             BIGINT NOT NULL,
			client_name           VARCHAR NOT NULL,
			amount                DOUBLE NOT NULL,
			upload_date           TIMESTAMP NOT NULL,
			status                VARCHAR NOT NULL,
			file_path             VARCHAR NOT NULL,
			processing_start_time TIMESTAMP,
			processing_end_time   TIMESTAMP
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	return &DuckStore{db: db}, nil
}

func (ds *DuckStore) Create(ctx context.Context, in models.NewInvoice) (models.Invoice, error) {
	inv := in.Build(uuid.New().String())
	inv.UploadDate = dbTime(inv.UploadDate)

	ds.mu.Lock()
	defer ds.mu.Unlock()

	_, err := ds.db.ExecContext(ctx,
		`INSERT INTO invoices (seq, `+invoiceColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ds.seq.Add(1), inv.ID, inv.FileName, inv.FileSize, inv.ClientName, inv.Amount,
		inv.UploadDate, string(inv.Status), inv.FilePath, nil, nil,
	)
	if err != nil {
		return models.Invoice{}, fmt.Errorf("inserting invoice: %w", err)
	}
	ds.revision.Add(1)

	return inv, nil
}

func (ds *DuckStore) Get(ctx context.Context, id string) (models.Invoice, bool, error) {
	row := ds.db.QueryRowContext(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = ?`, id)
	inv, err := scanInvoice(row)
	if err == sql.ErrNoRows {
		return models.Invoice{}, false, nil
	}
	if err != nil {
		return models.Invoice{}, false, fmt.Errorf("loading invoice %s: %w", id, err)
	}
	return inv, true, nil
}

func (ds *DuckStore) Update(ctx context.Context, id string, u models.InvoiceUpdate) (models.Invoice, bool, error) {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	current, ok, err := ds.Get(ctx, id)
	if err != nil || !ok {
		return models.Invoice{}, ok, err
	}

	merged := u.Apply(current)
	merged.ProcessingStartTime = dbTimePtr(merged.ProcessingStartTime)
	merged.ProcessingEndTime = dbTimePtr(merged.ProcessingEndTime)

	_, err = ds.db.ExecContext(ctx, `
		UPDATE invoices
		SET client_name = ?, amount = ?, status = ?, processing_start_time = ?, processing_end_time = ?
		WHERE id = ?`,
		merged.ClientName, merged.Amount, string(merged.Status),
		nullTime(merged.ProcessingStartTime), nullTime(merged.ProcessingEndTime), id,
	)
	if err != nil {
		return models.Invoice{}, false, fmt.Errorf("updating invoice %s: %w", id, err)
	}
	ds.revision.Add(1)

	return merged, true, nil
}

func (ds *DuckStore) All(ctx context.Context) ([]models.Invoice, error) {
	rows, err := ds.db.QueryContext(ctx, `SELECT `+invoiceColumns+` FROM invoices ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("listing invoices: %w", err)
	}
	defer rows.Close()
	return scanInvoices(rows)
}

// Query translates p into SQL with the same semantics as query.Apply:
// missing timestamps first when ascending, ties broken by id ascending.
func (ds *DuckStore) Query(ctx context.Context, p query.Params) (models.PaginatedInvoices, error) {
	p = p.Normalize(query.DefaultDefaults)
	where, args := buildWhereClause(p)

	countQuery := "SELECT COUNT(*) FROM invoices"
	if where != "" {
		countQuery += " WHERE " + where
	}

	var total int
	if err := ds.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return models.PaginatedInvoices{}, fmt.Errorf("count query failed: %w", err)
	}

	page := models.PaginatedInvoices{Data: []models.Invoice{}, Total: total, Page: p.Page, Limit: p.Limit}
	if p.Beyond(total) {
		return page, nil
	}

	direction := "ASC NULLS FIRST"
	if p.Order == query.Descending {
		direction = "DESC NULLS LAST"
	}

	var sb strings.Builder
	sb.WriteString("SELECT " + invoiceColumns + " FROM invoices")
	if where != "" {
		sb.WriteString(" WHERE " + where)
	}
	fmt.Fprintf(&sb, " ORDER BY %s %s, id ASC LIMIT ? OFFSET ?", p.SortBy.Column(), direction)

	rows, err := ds.db.QueryContext(ctx, sb.String(), append(args, p.Limit, p.Offset())...)
	if err != nil {
		return models.PaginatedInvoices{}, fmt.Errorf("page query failed: %w", err)
	}
	defer rows.Close()

	data, err := scanInvoices(rows)
	if err != nil {
		return models.PaginatedInvoices{}, err
	}
	page.Data = data
	return page, nil
}

func (ds *DuckStore) Revision() uint64 {
	return ds.revision.Load()
}

func (ds *DuckStore) Close() error {
	return ds.db.Close()
}

func buildWhereClause(p query.Params) (string, []interface{}) {
	var clauses []string
	var args []interface{}

	if p.Status != nil {
		clauses = append(clauses, "status = ?")
		args = append(args, string(*p.Status))
	}

	if p.Search != "" {
		needle := strings.ToLower(p.Search)
		clauses = append(clauses, "(contains(lower(file_name), ?) OR contains(lower(client_name), ?))")
		args = append(args, needle, needle)
	}

	return strings.Join(clauses, " AND "), args
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanInvoice(row rowScanner) (models.Invoice, error) {
	var (
		inv        models.Invoice
		status     string
		start, end sql.NullTime
	)
	err := row.Scan(&inv.ID, &inv.FileName, &inv.FileSize, &inv.ClientName, &inv.Amount,
		&inv.UploadDate, &status, &inv.FilePath, &start, &end)
	if err != nil {
		return models.Invoice{}, err
	}

	inv.Status = models.InvoiceStatus(status)
	inv.UploadDate = inv.UploadDate.UTC()
	if start.Valid {
		t := start.Time.UTC()
		inv.ProcessingStartTime = &t
	}
	if end.Valid {
		t := end.Time.UTC()
		inv.ProcessingEndTime = &t
	}
	return inv, nil
}

func scanInvoices(rows *sql.Rows) ([]models.Invoice, error) {
	list := make([]models.Invoice, 0)
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning invoice: %w", err)
		}
		list = append(list, inv)
	}
	return list, rows.Err()
}

// dbTime matches the microsecond UTC precision of a TIMESTAMP column.
func dbTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

func dbTimePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := dbTime(*t)
	return &v
}

func nullTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}

var _ Store = (*DuckStore)(nil)
