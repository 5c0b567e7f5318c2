package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/panafact/facturacion-api/internal/domain"
	"github.com/panafact/facturacion-api/internal/domain/entity"
	"github.com/panafact/facturacion-api/internal/domain/repository"
)

var _ repository.FiscalDocumentRepository = (*FiscalDocumentRepo)(nil)

// FiscalDocumentRepo implementación de FiscalDocumentRepository (usable con pool o tx).
type FiscalDocumentRepo struct {
	q Querier
}

// NewFiscalDocumentRepository construye el adaptador. Pasar pool o tx (Querier).
func NewFiscalDocumentRepository(q Querier) *FiscalDocumentRepo {
	return &FiscalDocumentRepo{q: q}
}

const fiscalDocumentColumns = `
	id, company_id, invoice_id, kind, state, provider, environment,
	fiscal_code, verification_url, signed_xml, transaction_ref, rejection_reason,
	issued_at, authorized_at, created_at, updated_at`

// Create persiste un intento de emisión.
func (r *FiscalDocumentRepo) Create(ctx context.Context, fd *entity.FiscalDocument) error {
	if fd.ID == "" {
		fd.ID = uuid.New().String()
	}
	query := `
		INSERT INTO fiscal_documents (id, company_id, invoice_id, kind, state, provider, environment,
			fiscal_code, verification_url, signed_xml, transaction_ref, rejection_reason,
			issued_at, authorized_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`
	_, err := r.q.Exec(ctx, query,
		fd.ID, fd.CompanyID, fd.InvoiceID, fd.Kind, fd.State, fd.Provider, fd.Environment,
		nullIfEmpty(fd.FiscalCode), nullIfEmpty(fd.VerificationURL), nullIfEmpty(fd.SignedXML),
		nullIfEmpty(fd.TransactionRef), nullIfEmpty(fd.RejectionReason),
		fd.IssuedAt, fd.AuthorizedAt, fd.CreatedAt, fd.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			// Índice parcial: a lo sumo un documento autorizado por factura.
			return fmt.Errorf("%w: ya existe un documento fiscal autorizado para la factura %s", domain.ErrConflict, fd.InvoiceID)
		}
		return fmt.Errorf("insert fiscal document: %w", err)
	}
	return nil
}

// GetByID obtiene un documento fiscal por ID, nil si no existe.
func (r *FiscalDocumentRepo) GetByID(ctx context.Context, id string) (*entity.FiscalDocument, error) {
	query := `SELECT` + fiscalDocumentColumns + ` FROM fiscal_documents WHERE id = $1`
	fd, err := r.scanOne(r.q.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("get fiscal document: %w", err)
	}
	return fd, nil
}

// UpdateStateFrom aplica todos los campos con el guard de estado en el WHERE.
// Si ninguna fila coincide, otro proceso ya movió el documento: ErrConflict.
func (r *FiscalDocumentRepo) UpdateStateFrom(ctx context.Context, fd *entity.FiscalDocument, fromState string) error {
	query := `
		UPDATE fiscal_documents
		SET state            = $3,
		    fiscal_code      = COALESCE($4, fiscal_code),
		    verification_url = COALESCE($5, verification_url),
		    signed_xml       = COALESCE($6, signed_xml),
		    transaction_ref  = COALESCE($7, transaction_ref),
		    rejection_reason = COALESCE($8, rejection_reason),
		    authorized_at    = COALESCE($9, authorized_at),
		    updated_at       = $10
		WHERE id = $1 AND state = $2`
	tag, err := r.q.Exec(ctx, query,
		fd.ID, fromState, fd.State,
		nullIfEmpty(fd.FiscalCode), nullIfEmpty(fd.VerificationURL), nullIfEmpty(fd.SignedXML),
		nullIfEmpty(fd.TransactionRef), nullIfEmpty(fd.RejectionReason),
		fd.AuthorizedAt, fd.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update fiscal document state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: el documento fiscal %s ya no está en %s", domain.ErrConflict, fd.ID, fromState)
	}
	return nil
}

// UpdateTransactionRef guarda la referencia del PAC sin tocar el estado.
func (r *FiscalDocumentRepo) UpdateTransactionRef(ctx context.Context, id, transactionRef string) error {
	query := `UPDATE fiscal_documents SET transaction_ref = $2, updated_at = now() WHERE id = $1`
	tag, err := r.q.Exec(ctx, query, id, transactionRef)
	if err != nil {
		return fmt.Errorf("update transaction ref: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: documento fiscal %s", domain.ErrNotFound, id)
	}
	return nil
}

// GetAuthorizedByInvoiceID devuelve el documento AUTORIZADO o ANULADO de la
// factura, nil si no existe. Por índice parcial hay a lo sumo uno.
func (r *FiscalDocumentRepo) GetAuthorizedByInvoiceID(ctx context.Context, invoiceID string) (*entity.FiscalDocument, error) {
	query := `SELECT` + fiscalDocumentColumns + `
		FROM fiscal_documents
		WHERE invoice_id = $1 AND state IN ('AUTHORIZED', 'ANNULLED')
		LIMIT 1`
	fd, err := r.scanOne(r.q.QueryRow(ctx, query, invoiceID))
	if err != nil {
		return nil, fmt.Errorf("get authorized fiscal document: %w", err)
	}
	return fd, nil
}

// GetPendingByInvoiceID devuelve el intento en SIGNING más reciente, nil si no hay.
func (r *FiscalDocumentRepo) GetPendingByInvoiceID(ctx context.Context, invoiceID string) (*entity.FiscalDocument, error) {
	query := `SELECT` + fiscalDocumentColumns + `
		FROM fiscal_documents
		WHERE invoice_id = $1 AND state = 'SIGNING'
		ORDER BY created_at DESC
		LIMIT 1`
	fd, err := r.scanOne(r.q.QueryRow(ctx, query, invoiceID))
	if err != nil {
		return nil, fmt.Errorf("get pending fiscal document: %w", err)
	}
	return fd, nil
}

// ListByInvoiceID devuelve todos los intentos, del más antiguo al más reciente.
func (r *FiscalDocumentRepo) ListByInvoiceID(ctx context.Context, invoiceID string) ([]*entity.FiscalDocument, error) {
	query := `SELECT` + fiscalDocumentColumns + `
		FROM fiscal_documents
		WHERE invoice_id = $1
		ORDER BY created_at ASC`
	rows, err := r.q.Query(ctx, query, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("list fiscal documents: %w", err)
	}
	defer rows.Close()

	var out []*entity.FiscalDocument
	for rows.Next() {
		fd, err := scanFiscalDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan fiscal document: %w", err)
		}
		out = append(out, fd)
	}
	return out, rows.Err()
}

func (r *FiscalDocumentRepo) scanOne(row pgx.Row) (*entity.FiscalDocument, error) {
	fd, err := scanFiscalDocument(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return fd, err
}

func scanFiscalDocument(row pgx.Row) (*entity.FiscalDocument, error) {
	var fd entity.FiscalDocument
	var fiscalCode, verificationURL, signedXML, transactionRef, rejectionReason *string
	err := row.Scan(
		&fd.ID, &fd.CompanyID, &fd.InvoiceID, &fd.Kind, &fd.State, &fd.Provider, &fd.Environment,
		&fiscalCode, &verificationURL, &signedXML, &transactionRef, &rejectionReason,
		&fd.IssuedAt, &fd.AuthorizedAt, &fd.CreatedAt, &fd.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	fd.FiscalCode = derefStr(fiscalCode)
	fd.VerificationURL = derefStr(verificationURL)
	fd.SignedXML = derefStr(signedXML)
	fd.TransactionRef = derefStr(transactionRef)
	fd.RejectionReason = derefStr(rejectionReason)
	return &fd, nil
}
