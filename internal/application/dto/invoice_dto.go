package dto

import "encoding/json"

// InvoiceRequest body para POST /invoices/ y PUT /invoices/:invoice_number/.
// Date en formato YYYY-MM-DD (también se acepta RFC 3339).
type InvoiceRequest struct {
	InvoiceNumber string                 `json:"invoice_number" validate:"required,max=50"`
	CustomerName  string                 `json:"customer_name" validate:"required,max=255"`
	Date          string                 `json:"date" validate:"required"`
	Details       []InvoiceDetailRequest `json:"details" validate:"required,dive"`
}

// InvoiceDetailRequest línea de factura. line_total se acepta en el cuerpo pero se ignora:
// siempre lo calcula el servidor.
// Los montos se guardan tal como llegan (número o string JSON) y se interpretan al validar,
// así un valor no numérico se reporta en su campo (details[i].quantity).
type InvoiceDetailRequest struct {
	Description string          `json:"description" validate:"required,max=255"`
	Quantity    json.RawMessage `json:"quantity" validate:"required" swaggertype:"string"`
	UnitPrice   json.RawMessage `json:"unit_price" validate:"required" swaggertype:"string"`
	LineTotal   json.RawMessage `json:"line_total,omitempty" validate:"-" swaggertype:"string"`
}

// InvoiceResponse factura con sus detalles. Los montos van como string con dos decimales.
type InvoiceResponse struct {
	InvoiceNumber string                  `json:"invoice_number"`
	CustomerName  string                  `json:"customer_name"`
	Date          string                  `json:"date"`
	Details       []InvoiceDetailResponse `json:"details"`
	TotalAmount   string                  `json:"total_amount"`
}

// InvoiceDetailResponse línea de detalle en la respuesta.
type InvoiceDetailResponse struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Quantity    string `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
	LineTotal   string `json:"line_total"`
}

// InvoiceListResult listado de facturas y total sin paginar.
type InvoiceListResult struct {
	Items []InvoiceResponse
	Total int
}
