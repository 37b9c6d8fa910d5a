package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Facturas-api/internal/application/billing"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	InvoiceUC  *billing.InvoiceUseCase
	InvoicePDF *billing.PDFUseCase
}

// Router registra las rutas de la API. La barra final es opcional (/invoices y /invoices/).
func Router(app *fiber.App, deps RouterDeps) {
	invoices := app.Group("/invoices")
	invoiceHandler := NewInvoiceHandler(deps.InvoiceUC, deps.InvoicePDF)
	invoices.Get("/", invoiceHandler.List)
	invoices.Post("/", invoiceHandler.Create)
	invoices.Get("/:invoice_number/pdf", invoiceHandler.DownloadPDF)
	invoices.Get("/:invoice_number", invoiceHandler.GetByNumber)
	invoices.Put("/:invoice_number", invoiceHandler.Update)
	invoices.Delete("/:invoice_number", invoiceHandler.Delete)
}
