// Package tax calcula bases gravables, impuestos y totales de un conjunto de
// líneas, agrupados por tasa. Puro y determinista: sin I/O ni estado.
//
// Política de redondeo (fijada, ver DESIGN.md): half-up a 2 decimales aplicado
// una sola vez a nivel de línea (base y luego impuesto), y después se suma.
// Nunca se suma primero para redondear al final: con muchas líneas eso
// acumula deriva de centavos y hace irreproducible el recálculo.
// Los descuentos son por línea y pre-impuesto: reducen la base gravable antes
// de aplicar la tasa.
package tax

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/panafact/facturacion-api/internal/domain"
)

var one = decimal.NewFromInt(1)

// LineItem es una línea de entrada del cálculo. La tasa es obligatoria y
// explícita; una tasa ausente es un error del caller, no un valor por defecto.
type LineItem struct {
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	Discount    decimal.Decimal // monto pre-impuesto; cero si no aplica
	Rate        decimal.Decimal // fracción en [0,1]
}

// RateGroup acumula base e impuesto de todas las líneas con la misma tasa.
type RateGroup struct {
	Rate    decimal.Decimal
	Taxable decimal.Decimal
	Tax     decimal.Decimal
}

// Breakdown es el resultado del cálculo: grupos por tasa (orden ascendente)
// y totales. Invariante: Total == Taxable + Tax, y por grupo
// Tax == round2(Taxable_línea × Rate) sumado línea a línea.
type Breakdown struct {
	Groups  []RateGroup
	Taxable decimal.Decimal
	Tax     decimal.Decimal
	Total   decimal.Decimal
}

// GroupByRate devuelve el grupo con la tasa dada, nil si no existe.
func (b *Breakdown) GroupByRate(rate decimal.Decimal) *RateGroup {
	for i := range b.Groups {
		if b.Groups[i].Rate.Equal(rate) {
			return &b.Groups[i]
		}
	}
	return nil
}

// Compute valida las líneas y calcula el desglose de impuestos.
// Errores de validación envuelven domain.ErrInvalidLineItems.
func Compute(items []LineItem) (*Breakdown, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: se requiere al menos una línea", domain.ErrInvalidLineItems)
	}

	type acc struct {
		taxable decimal.Decimal
		tax     decimal.Decimal
	}
	groups := make(map[string]*acc)
	rates := make(map[string]decimal.Decimal)

	for i, item := range items {
		if err := validate(i, item); err != nil {
			return nil, err
		}
		// Base de la línea: cantidad × precio − descuento, redondeada una vez.
		taxable := item.Quantity.Mul(item.UnitPrice).Sub(item.Discount).Round(2)
		tax := taxable.Mul(item.Rate).Round(2)

		key := item.Rate.String()
		g, ok := groups[key]
		if !ok {
			g = &acc{taxable: decimal.Zero, tax: decimal.Zero}
			groups[key] = g
			rates[key] = item.Rate
		}
		g.taxable = g.taxable.Add(taxable)
		g.tax = g.tax.Add(tax)
	}

	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return rates[keys[i]].LessThan(rates[keys[j]])
	})

	out := &Breakdown{
		Taxable: decimal.Zero,
		Tax:     decimal.Zero,
	}
	for _, k := range keys {
		g := groups[k]
		out.Groups = append(out.Groups, RateGroup{Rate: rates[k], Taxable: g.taxable, Tax: g.tax})
		out.Taxable = out.Taxable.Add(g.taxable)
		out.Tax = out.Tax.Add(g.tax)
	}
	out.Total = out.Taxable.Add(out.Tax)
	return out, nil
}

func validate(i int, item LineItem) error {
	if !item.Quantity.GreaterThan(decimal.Zero) {
		return fmt.Errorf("%w: cantidad debe ser mayor a cero (línea %d)", domain.ErrInvalidLineItems, i)
	}
	if item.UnitPrice.LessThan(decimal.Zero) {
		return fmt.Errorf("%w: precio unitario negativo (línea %d)", domain.ErrInvalidLineItems, i)
	}
	if item.Discount.LessThan(decimal.Zero) {
		return fmt.Errorf("%w: descuento negativo (línea %d)", domain.ErrInvalidLineItems, i)
	}
	if item.Discount.GreaterThan(item.Quantity.Mul(item.UnitPrice)) {
		return fmt.Errorf("%w: descuento mayor al subtotal de la línea (línea %d)", domain.ErrInvalidLineItems, i)
	}
	if item.Rate.LessThan(decimal.Zero) || item.Rate.GreaterThan(one) {
		return fmt.Errorf("%w: tasa de impuesto fuera de [0,1] (línea %d)", domain.ErrInvalidLineItems, i)
	}
	return nil
}
