package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout formato de fecha de la factura en la API y en el almacenamiento.
const DateLayout = "2006-01-02"

// Invoice representa la cabecera de una factura con sus líneas.
// InvoiceNumber es único y es el identificador externo.
type Invoice struct {
	ID            string
	InvoiceNumber string
	CustomerName  string
	Date          time.Time
	Details       []*InvoiceDetail
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ReplaceDetails reemplaza por completo las líneas de la factura.
// Las líneas quedan asociadas a esta factura, numeradas en orden y con su total recalculado.
func (inv *Invoice) ReplaceDetails(details []*InvoiceDetail) {
	inv.Details = append(make([]*InvoiceDetail, 0, len(details)), details...)
	inv.Prepare()
}

// Prepare recalcula los totales y la propiedad de cada línea antes de persistir.
func (inv *Invoice) Prepare() {
	for i, d := range inv.Details {
		d.InvoiceID = inv.ID
		d.Position = i
		d.Recalculate()
	}
}

// TotalAmount suma los totales de línea.
func (inv *Invoice) TotalAmount() decimal.Decimal {
	total := decimal.Zero
	for _, d := range inv.Details {
		total = total.Add(d.LineTotal)
	}
	return total
}

// Clone devuelve una copia profunda (las líneas no se comparten).
func (inv *Invoice) Clone() *Invoice {
	if inv == nil {
		return nil
	}
	c := *inv
	c.Details = make([]*InvoiceDetail, 0, len(inv.Details))
	for _, d := range inv.Details {
		dc := *d
		c.Details = append(c.Details, &dc)
	}
	return &c
}
