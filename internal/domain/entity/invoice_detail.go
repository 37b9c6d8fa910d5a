package entity

import "github.com/shopspring/decimal"

// LineTotalPlaces decimales con los que se persiste el total de línea (NUMERIC(10,2)).
const LineTotalPlaces = 2

// InvoiceDetail representa una línea de detalle de una factura.
// Cada línea pertenece a una sola factura (InvoiceID).
type InvoiceDetail struct {
	ID          string
	InvoiceID   string
	Position    int
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	LineTotal   decimal.Decimal
}

// NewInvoiceDetail crea una línea con el total ya calculado.
func NewInvoiceDetail(description string, quantity, unitPrice decimal.Decimal) *InvoiceDetail {
	d := &InvoiceDetail{
		Description: description,
		Quantity:    quantity,
		UnitPrice:   unitPrice,
	}
	d.Recalculate()
	return d
}

// Recalculate fija LineTotal = Quantity × UnitPrice. Se invoca antes de cada escritura.
func (d *InvoiceDetail) Recalculate() {
	d.LineTotal = ComputeLineTotal(d.Quantity, d.UnitPrice)
}

// ComputeLineTotal calcula el total de una línea redondeado a LineTotalPlaces.
func ComputeLineTotal(quantity, unitPrice decimal.Decimal) decimal.Decimal {
	return quantity.Mul(unitPrice).Round(LineTotalPlaces)
}
