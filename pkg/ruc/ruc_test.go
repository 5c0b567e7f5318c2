package ruc_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panafact/facturacion-api/pkg/ruc"
)

// Vectores calculados a mano con el esquema módulo 11 de dos pasadas
// (pesos 2..7 cíclicos de derecha a izquierda; 10 y 11 colapsan a 0).
func TestComputeDV_Vectores(t *testing.T) {
	cases := []struct {
		taxID string
		dv    string
	}{
		{"155658547", "01"},
		{"8-123-456", "64"},
		{"12345", "52"},
	}
	for _, tc := range cases {
		t.Run(tc.taxID, func(t *testing.T) {
			dv, err := ruc.ComputeDV(tc.taxID)
			require.NoError(t, err)
			assert.Equal(t, tc.dv, dv)
		})
	}
}

// El formato con guiones y el formato plano producen el mismo DV.
func TestComputeDV_IgnoraSeparadores(t *testing.T) {
	a, err := ruc.ComputeDV("8-123-456")
	require.NoError(t, err)
	b, err := ruc.ComputeDV("8123456")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestComputeDV_MuyCorto(t *testing.T) {
	_, err := ruc.ComputeDV("12")
	require.Error(t, err)
}

func TestValidateDV(t *testing.T) {
	require.NoError(t, ruc.ValidateDV("8-123-456", "64"))
	require.NoError(t, ruc.ValidateDV("8-123-456", "6"), "un solo dígito compara contra el primero")
	require.Error(t, ruc.ValidateDV("8-123-456", "99"))
	require.Error(t, ruc.ValidateDV("8-123-456", ""))
	require.Error(t, ruc.ValidateDV("8-123-456", "123"))
}
