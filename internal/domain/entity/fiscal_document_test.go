package entity_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/panafact/facturacion-api/internal/domain/entity"
)

// La máquina de estados es cerrada: desde DRAFT solo se llega a AUTHORIZED o
// REJECTED pasando por SIGNING, y ningún camino sale de un estado terminal
// salvo AUTHORIZED → ANNULLED.
func TestCanTransition(t *testing.T) {
	allowed := [][2]string{
		{entity.FiscalStateDraft, entity.FiscalStateSigning},
		{entity.FiscalStateSigning, entity.FiscalStateAuthorized},
		{entity.FiscalStateSigning, entity.FiscalStateRejected},
		{entity.FiscalStateAuthorized, entity.FiscalStateAnnulled},
	}
	states := []string{
		entity.FiscalStateDraft, entity.FiscalStateSigning,
		entity.FiscalStateAuthorized, entity.FiscalStateRejected,
		entity.FiscalStateAnnulled,
	}

	isAllowed := func(from, to string) bool {
		for _, p := range allowed {
			if p[0] == from && p[1] == to {
				return true
			}
		}
		return false
	}

	for _, from := range states {
		for _, to := range states {
			assert.Equal(t, isAllowed(from, to), entity.CanTransition(from, to),
				"transición %s → %s", from, to)
		}
	}
}

func TestIsTerminal(t *testing.T) {
	assert.False(t, entity.IsTerminal(entity.FiscalStateDraft))
	assert.False(t, entity.IsTerminal(entity.FiscalStateSigning))
	assert.True(t, entity.IsTerminal(entity.FiscalStateAuthorized))
	assert.True(t, entity.IsTerminal(entity.FiscalStateRejected))
	assert.True(t, entity.IsTerminal(entity.FiscalStateAnnulled))
}
