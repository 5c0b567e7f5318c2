// Package ruc valida el dígito verificador (DV) del Registro Único de
// Contribuyente. Implementa el esquema módulo 11 de dos pasadas usado para
// DV de dos dígitos: la primera pasada calcula el primer dígito sobre los
// dígitos del RUC; la segunda lo incluye al final y calcula el segundo.
// Los pesos 2..7 se aplican cíclicamente de derecha a izquierda.
package ruc

import (
	"fmt"
	"unicode"
)

var weights = [6]int{2, 3, 4, 5, 6, 7}

// ComputeDV calcula el DV de dos dígitos para un RUC. Acepta el RUC con o
// sin guiones ("8-123-456" o "8123456"); solo cuentan los dígitos.
func ComputeDV(taxID string) (string, error) {
	digits := extractDigits(taxID)
	if len(digits) < 3 {
		return "", fmt.Errorf("ruc: se requieren al menos 3 dígitos, se encontraron %d", len(digits))
	}
	first := checkDigit(digits)
	second := checkDigit(append(append([]byte{}, digits...), byte('0'+first)))
	return fmt.Sprintf("%d%d", first, second), nil
}

// ValidateDV verifica que el DV recibido corresponda al RUC. El DV puede
// venir con uno o dos dígitos; con uno se compara contra el primero calculado.
func ValidateDV(taxID, dv string) error {
	dvDigits := extractDigits(dv)
	if len(dvDigits) == 0 || len(dvDigits) > 2 {
		return fmt.Errorf("ruc: DV debe tener 1 o 2 dígitos")
	}
	expected, err := ComputeDV(taxID)
	if err != nil {
		return err
	}
	if len(dvDigits) == 1 {
		if dvDigits[0] != expected[0] {
			return fmt.Errorf("ruc: DV inválido: esperado %c, recibido %c", expected[0], dvDigits[0])
		}
		return nil
	}
	if string(dvDigits) != expected {
		return fmt.Errorf("ruc: DV inválido: esperado %s, recibido %s", expected, string(dvDigits))
	}
	return nil
}

// checkDigit aplica módulo 11 con pesos cíclicos de derecha a izquierda.
// Resultados 10 y 11 colapsan a 0.
func checkDigit(digits []byte) int {
	var sum int
	for i := 0; i < len(digits); i++ {
		d := int(digits[len(digits)-1-i] - '0')
		sum += d * weights[i%len(weights)]
	}
	r := 11 - sum%11
	if r >= 10 {
		return 0
	}
	return r
}

func extractDigits(s string) []byte {
	var out []byte
	for _, r := range s {
		if unicode.IsDigit(r) {
			out = append(out, byte(r))
		}
	}
	return out
}
