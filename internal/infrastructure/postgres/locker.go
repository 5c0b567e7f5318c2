package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/panafact/facturacion-api/internal/application/emission"
)

var _ emission.InvoiceLocker = (*AdvisoryLocker)(nil)

// AdvisoryLocker serializa emisiones del mismo documento con advisory locks
// de sesión. Un lock de fila no sirve aquí: la fila SIGNING confirma en su
// propia transacción antes de la llamada al PAC, y el lock debe sobrevivirla.
// El lock vive en una conexión dedicada del pool y se libera junto con ella.
type AdvisoryLocker struct {
	pool *pgxpool.Pool
}

// NewAdvisoryLocker construye el locker con el pool.
func NewAdvisoryLocker(pool *pgxpool.Pool) *AdvisoryLocker {
	return &AdvisoryLocker{pool: pool}
}

// LockInvoice toma el advisory lock del documento, bloqueando hasta que el
// holder anterior libere o el contexto expire. La release devuelta es
// idempotente respecto a la conexión: siempre la devuelve al pool.
func (l *AdvisoryLocker) LockInvoice(ctx context.Context, invoiceID string) (func(), error) {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("adquirir conexión para lock: %w", err)
	}
	// hashtext mapea el UUID al espacio de claves de advisory locks.
	if _, err := conn.Exec(ctx, `SELECT pg_advisory_lock(hashtext($1))`, invoiceID); err != nil {
		conn.Release()
		return nil, fmt.Errorf("advisory lock %s: %w", invoiceID, err)
	}
	release := func() {
		// Unlock explícito con contexto propio: el del caller puede estar
		// ya cancelado cuando se libera.
		_, _ = conn.Exec(context.Background(), `SELECT pg_advisory_unlock(hashtext($1))`, invoiceID)
		conn.Release()
	}
	return release, nil
}
