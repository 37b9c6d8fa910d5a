package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/Facturas-api/internal/domain"
	"github.com/jhoicas/Facturas-api/internal/domain/entity"
	"github.com/jhoicas/Facturas-api/internal/domain/repository"
)

var _ repository.InvoiceRepository = (*InvoiceRepo)(nil)

// InvoiceRepo implementación de InvoiceRepository (usable con pool o tx).
// Las escrituras de varias sentencias deben ejecutarse vía TxRunner para ser atómicas.
type InvoiceRepo struct {
	q Querier
}

// NewInvoiceRepository construye el adaptador. Pasar pool o tx (Querier).
func NewInvoiceRepository(q Querier) *InvoiceRepo {
	return &InvoiceRepo{q: q}
}

// Create persiste la cabecera y sus líneas.
func (r *InvoiceRepo) Create(ctx context.Context, invoice *entity.Invoice) error {
	query := `
		INSERT INTO invoices (id, invoice_number, customer_name, date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.q.Exec(ctx, query,
		invoice.ID, invoice.InvoiceNumber, invoice.CustomerName, invoice.Date,
		invoice.CreatedAt, invoice.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("invoice number already exists: %w", domain.ErrDuplicate)
		}
		return fmt.Errorf("insert invoice: %w", err)
	}
	return r.insertDetails(ctx, invoice)
}

// Update sobrescribe la cabecera y reemplaza todas las líneas (DELETE + INSERT).
func (r *InvoiceRepo) Update(ctx context.Context, invoice *entity.Invoice) error {
	query := `
		UPDATE invoices
		SET invoice_number = $2,
		    customer_name  = $3,
		    date           = $4,
		    updated_at     = $5
		WHERE id = $1`
	cmd, err := r.q.Exec(ctx, query,
		invoice.ID, invoice.InvoiceNumber, invoice.CustomerName, invoice.Date, invoice.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("invoice number already exists: %w", domain.ErrDuplicate)
		}
		return fmt.Errorf("update invoice: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	if _, err := r.q.Exec(ctx, `DELETE FROM invoice_details WHERE invoice_id = $1`, invoice.ID); err != nil {
		return fmt.Errorf("delete invoice details: %w", err)
	}
	return r.insertDetails(ctx, invoice)
}

func (r *InvoiceRepo) insertDetails(ctx context.Context, invoice *entity.Invoice) error {
	invoice.Prepare()
	query := `
		INSERT INTO invoice_details (id, invoice_id, position, description, quantity, unit_price, line_total)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	for _, d := range invoice.Details {
		_, err := r.q.Exec(ctx, query,
			d.ID, d.InvoiceID, d.Position, d.Description, d.Quantity, d.UnitPrice, d.LineTotal,
		)
		if err != nil {
			return fmt.Errorf("insert invoice detail: %w", err)
		}
	}
	return nil
}

// Delete elimina la factura; invoice_details se borra por ON DELETE CASCADE.
func (r *InvoiceRepo) Delete(ctx context.Context, id string) error {
	cmd, err := r.q.Exec(ctx, `DELETE FROM invoices WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete invoice: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GetByNumber obtiene la factura con sus líneas. (nil, nil) si no existe.
func (r *InvoiceRepo) GetByNumber(ctx context.Context, number string) (*entity.Invoice, error) {
	query := `
		SELECT id, invoice_number, customer_name, date, created_at, updated_at
		FROM invoices WHERE invoice_number = $1`
	var inv entity.Invoice
	err := r.q.QueryRow(ctx, query, number).Scan(
		&inv.ID, &inv.InvoiceNumber, &inv.CustomerName, &inv.Date, &inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get invoice: %w", err)
	}
	details, err := r.detailsByInvoiceID(ctx, inv.ID)
	if err != nil {
		return nil, err
	}
	inv.Details = details
	return &inv, nil
}

func (r *InvoiceRepo) detailsByInvoiceID(ctx context.Context, invoiceID string) ([]*entity.InvoiceDetail, error) {
	query := `
		SELECT id, invoice_id, position, description, quantity, unit_price, line_total
		FROM invoice_details WHERE invoice_id = $1 ORDER BY position`
	rows, err := r.q.Query(ctx, query, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("list invoice details: %w", err)
	}
	defer rows.Close()
	list := []*entity.InvoiceDetail{}
	for rows.Next() {
		var d entity.InvoiceDetail
		if err := rows.Scan(&d.ID, &d.InvoiceID, &d.Position, &d.Description, &d.Quantity, &d.UnitPrice, &d.LineTotal); err != nil {
			return nil, fmt.Errorf("scan detail: %w", err)
		}
		list = append(list, &d)
	}
	return list, rows.Err()
}

// List pagina las cabeceras y trae sus líneas en la misma consulta (LEFT JOIN).
func (r *InvoiceRepo) List(ctx context.Context, limit, offset int) ([]*entity.Invoice, error) {
	query := `
		WITH page AS (
			SELECT id, invoice_number, customer_name, date, created_at, updated_at
			FROM invoices
			ORDER BY date DESC, invoice_number
			LIMIT $1 OFFSET $2
		)
		SELECT p.id, p.invoice_number, p.customer_name, p.date, p.created_at, p.updated_at,
		       d.id::text, d.position, d.description, d.quantity, d.unit_price, d.line_total
		FROM page p
		LEFT JOIN invoice_details d ON d.invoice_id = p.id
		ORDER BY p.date DESC, p.invoice_number, d.position`
	rows, err := r.q.Query(ctx, query, limitArg(limit), offset)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	defer rows.Close()

	list := []*entity.Invoice{}
	var current *entity.Invoice
	for rows.Next() {
		var inv entity.Invoice
		var (
			detailID, description      *string
			position                   *int
			quantity, price, lineTotal decimal.NullDecimal
		)
		if err := rows.Scan(
			&inv.ID, &inv.InvoiceNumber, &inv.CustomerName, &inv.Date, &inv.CreatedAt, &inv.UpdatedAt,
			&detailID, &position, &description, &quantity, &price, &lineTotal,
		); err != nil {
			return nil, fmt.Errorf("scan invoice: %w", err)
		}
		if current == nil || current.ID != inv.ID {
			inv.Details = []*entity.InvoiceDetail{}
			current = &inv
			list = append(list, current)
		}
		if detailID == nil {
			continue
		}
		current.Details = append(current.Details, &entity.InvoiceDetail{
			ID:          *detailID,
			InvoiceID:   current.ID,
			Position:    derefInt(position),
			Description: derefStr(description),
			Quantity:    quantity.Decimal,
			UnitPrice:   price.Decimal,
			LineTotal:   lineTotal.Decimal,
		})
	}
	return list, rows.Err()
}

// Count total de facturas.
func (r *InvoiceRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM invoices`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count invoices: %w", err)
	}
	return n, nil
}

func derefStr(p *string) string {
	if p != nil {
		return *p
	}
	return ""
}

func derefInt(p *int) int {
	if p != nil {
		return *p
	}
	return 0
}
