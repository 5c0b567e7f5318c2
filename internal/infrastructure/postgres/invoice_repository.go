package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/panafact/facturacion-api/internal/domain"
	"github.com/panafact/facturacion-api/internal/domain/entity"
	"github.com/panafact/facturacion-api/internal/domain/repository"
)

var _ repository.InvoiceRepository = (*InvoiceRepo)(nil)

// InvoiceRepo implementación de InvoiceRepository (usable con pool o tx).
type InvoiceRepo struct {
	q Querier
}

// NewInvoiceRepository construye el adaptador. Pasar pool o tx (Querier).
func NewInvoiceRepository(q Querier) *InvoiceRepo {
	return &InvoiceRepo{q: q}
}

// Create persiste la cabecera del documento comercial.
func (r *InvoiceRepo) Create(ctx context.Context, inv *entity.Invoice) error {
	if inv.ID == "" {
		inv.ID = uuid.New().String()
	}
	query := `
		INSERT INTO invoices (id, company_id, customer_id, kind, number, date, ref_invoice_id,
			net_total, tax_total, grand_total, fiscal_status, fiscal_code, fiscal_authorized_at,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`
	_, err := r.q.Exec(ctx, query,
		inv.ID, inv.CompanyID, inv.CustomerID, inv.Kind, inv.Number, inv.Date,
		nullIfEmpty(inv.RefInvoiceID),
		inv.NetTotal, inv.TaxTotal, inv.GrandTotal,
		inv.FiscalStatus, nullIfEmpty(inv.FiscalCode), inv.FiscalAuthorizedAt,
		inv.CreatedAt, inv.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: el número %s ya existe para la empresa", domain.ErrConflict, inv.Number)
		}
		return fmt.Errorf("insert invoice: %w", err)
	}
	return nil
}

// CreateDetail persiste una línea de detalle.
func (r *InvoiceRepo) CreateDetail(ctx context.Context, detail *entity.InvoiceDetail) error {
	if detail.ID == "" {
		detail.ID = uuid.New().String()
	}
	query := `
		INSERT INTO invoice_details (id, invoice_id, description, quantity, unit_price, discount,
			tax_rate, taxable, tax)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.q.Exec(ctx, query,
		detail.ID, detail.InvoiceID, detail.Description, detail.Quantity, detail.UnitPrice,
		detail.Discount, detail.TaxRate, detail.Taxable, detail.Tax,
	)
	if err != nil {
		return fmt.Errorf("insert invoice detail: %w", err)
	}
	return nil
}

const invoiceColumns = `
	id, company_id, customer_id, kind, number, date, ref_invoice_id,
	net_total, tax_total, grand_total, fiscal_status, fiscal_code, fiscal_authorized_at,
	created_at, updated_at`

// GetByID obtiene un documento comercial por ID, nil si no existe.
func (r *InvoiceRepo) GetByID(ctx context.Context, id string) (*entity.Invoice, error) {
	query := `SELECT` + invoiceColumns + ` FROM invoices WHERE id = $1`
	inv, err := scanInvoice(r.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get invoice: %w", err)
	}
	return inv, nil
}

// GetDetailsByInvoiceID devuelve las líneas del documento en orden de inserción.
func (r *InvoiceRepo) GetDetailsByInvoiceID(ctx context.Context, invoiceID string) ([]*entity.InvoiceDetail, error) {
	query := `
		SELECT id, invoice_id, description, quantity, unit_price, discount, tax_rate, taxable, tax
		FROM invoice_details WHERE invoice_id = $1
		ORDER BY id`
	rows, err := r.q.Query(ctx, query, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("list invoice details: %w", err)
	}
	defer rows.Close()

	var out []*entity.InvoiceDetail
	for rows.Next() {
		var d entity.InvoiceDetail
		if err := rows.Scan(&d.ID, &d.InvoiceID, &d.Description, &d.Quantity, &d.UnitPrice,
			&d.Discount, &d.TaxRate, &d.Taxable, &d.Tax); err != nil {
			return nil, fmt.Errorf("scan invoice detail: %w", err)
		}
		out = append(out, &d)
	}
	return out, rows.Err()
}

// GetReferencedInvoiceID devuelve la factura que la nota reversa, vacío si no hay.
func (r *InvoiceRepo) GetReferencedInvoiceID(ctx context.Context, noteID string) (string, error) {
	var refID *string
	err := r.q.QueryRow(ctx, `SELECT ref_invoice_id FROM invoices WHERE id = $1`, noteID).Scan(&refID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get referenced invoice: %w", err)
	}
	return derefStr(refID), nil
}

// UpdateFiscalFields estampa estado fiscal, CUFE y fecha de autorización.
func (r *InvoiceRepo) UpdateFiscalFields(ctx context.Context, invoiceID, fiscalStatus, fiscalCode string, authorizedAt *time.Time) error {
	query := `
		UPDATE invoices
		SET fiscal_status        = $2,
		    fiscal_code          = COALESCE($3, fiscal_code),
		    fiscal_authorized_at = COALESCE($4, fiscal_authorized_at),
		    updated_at           = now()
		WHERE id = $1`
	tag, err := r.q.Exec(ctx, query, invoiceID, fiscalStatus, nullIfEmpty(fiscalCode), authorizedAt)
	if err != nil {
		return fmt.Errorf("update invoice fiscal fields: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: documento %s", domain.ErrNotFound, invoiceID)
	}
	return nil
}

func scanInvoice(row pgx.Row) (*entity.Invoice, error) {
	var inv entity.Invoice
	var refID, fiscalCode *string
	err := row.Scan(
		&inv.ID, &inv.CompanyID, &inv.CustomerID, &inv.Kind, &inv.Number, &inv.Date, &refID,
		&inv.NetTotal, &inv.TaxTotal, &inv.GrandTotal,
		&inv.FiscalStatus, &fiscalCode, &inv.FiscalAuthorizedAt,
		&inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	inv.RefInvoiceID = derefStr(refID)
	inv.FiscalCode = derefStr(fiscalCode)
	return &inv, nil
}
