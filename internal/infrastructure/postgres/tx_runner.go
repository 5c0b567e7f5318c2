package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/panafact/facturacion-api/internal/application/emission"
	"github.com/panafact/facturacion-api/internal/domain/repository"
)

var _ emission.TxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL.
type TxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// RunEmission inicia una transacción, ejecuta fn con los repos fiscales
// atados a la tx y hace Commit o Rollback. La transición del FiscalDocument
// y el estampado de la factura confirman juntos o no confirman.
func (r *TxRunner) RunEmission(ctx context.Context, fn func(
	fiscalRepo repository.FiscalDocumentRepository,
	invoiceRepo repository.InvoiceRepository,
) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	fiscalRepo := NewFiscalDocumentRepository(tx)
	invoiceRepo := NewInvoiceRepository(tx)

	if err := fn(fiscalRepo, invoiceRepo); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
