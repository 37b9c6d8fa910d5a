package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/jhoicas/Facturas-api/internal/application/billing"
	"github.com/jhoicas/Facturas-api/internal/application/dto"
	"github.com/jhoicas/Facturas-api/internal/domain"
)

// HeaderTotalCount total de facturas sin paginar en GET /invoices/.
const HeaderTotalCount = "X-Total-Count"

// InvoiceHandler maneja las peticiones HTTP de facturación.
type InvoiceHandler struct {
	uc    *billing.InvoiceUseCase
	pdfUC *billing.PDFUseCase
}

// NewInvoiceHandler construye el handler.
func NewInvoiceHandler(uc *billing.InvoiceUseCase, pdfUC *billing.PDFUseCase) *InvoiceHandler {
	return &InvoiceHandler{uc: uc, pdfUC: pdfUC}
}

// List godoc
// @Summary      Listar facturas con sus detalles
// @Tags         invoices
// @Produce      json
// @Param        limit   query  int  false  "Límite (0 = todas)"  default(0)
// @Param        offset  query  int  false  "Offset"              default(0)
// @Success      200     {array}   dto.InvoiceResponse
// @Router       /invoices/ [get]
func (h *InvoiceHandler) List(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 0)
	offset := c.QueryInt("offset", 0)
	if limit < 0 {
		limit = 0
	}
	if offset < 0 {
		offset = 0
	}
	out, err := h.uc.List(c.UserContext(), limit, offset)
	if err != nil {
		return writeError(c, err)
	}
	c.Set(HeaderTotalCount, fmt.Sprint(out.Total))
	return c.JSON(out.Items)
}

// Create godoc
// @Summary      Crear factura
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        body  body  dto.InvoiceRequest  true  "Factura con sus detalles"
// @Success      201   {object}  dto.InvoiceResponse
// @Failure      400   {object}  dto.ValidationErrorResponse
// @Router       /invoices/ [post]
func (h *InvoiceHandler) Create(c *fiber.Ctx) error {
	var in dto.InvoiceRequest
	if err := c.BodyParser(&in); err != nil {
		return writeBodyError(c, err)
	}
	out, err := h.uc.Create(c.UserContext(), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// GetByNumber godoc
// @Summary      Obtener factura por número
// @Tags         invoices
// @Produce      json
// @Param        invoice_number  path  string  true  "Número de factura"
// @Success      200  {object}  dto.InvoiceResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /invoices/{invoice_number}/ [get]
func (h *InvoiceHandler) GetByNumber(c *fiber.Ctx) error {
	number, err := invoiceNumberParam(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	out, err := h.uc.Get(c.UserContext(), number)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Update godoc
// @Summary      Reemplazar factura (incluye todas sus líneas)
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        invoice_number  path  string              true  "Número de factura"
// @Param        body            body  dto.InvoiceRequest  true  "Factura completa"
// @Success      200  {object}  dto.InvoiceResponse
// @Failure      400  {object}  dto.ValidationErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /invoices/{invoice_number}/ [put]
func (h *InvoiceHandler) Update(c *fiber.Ctx) error {
	number, err := invoiceNumberParam(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	var in dto.InvoiceRequest
	if err := c.BodyParser(&in); err != nil {
		return writeBodyError(c, err)
	}
	out, err := h.uc.Update(c.UserContext(), number, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Delete godoc
// @Summary      Eliminar factura y sus líneas
// @Tags         invoices
// @Produce      json
// @Param        invoice_number  path  string  true  "Número de factura"
// @Success      200  {object}  dto.MessageResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /invoices/{invoice_number}/ [delete]
func (h *InvoiceHandler) Delete(c *fiber.Ctx) error {
	number, err := invoiceNumberParam(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	if err := h.uc.Delete(c.UserContext(), number); err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.MessageResponse{Message: "factura eliminada correctamente"})
}

// DownloadPDF godoc
// @Summary      Descargar la factura en PDF
// @Tags         invoices
// @Produce      application/pdf
// @Param        invoice_number  path  string  true  "Número de factura"
// @Success      200  {file}    binary
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /invoices/{invoice_number}/pdf [get]
func (h *InvoiceHandler) DownloadPDF(c *fiber.Ctx) error {
	number, err := invoiceNumberParam(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	pdfBytes, filename, err := h.pdfUC.DownloadInvoicePDF(c.UserContext(), number)
	if err != nil {
		return writeError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, filename))
	return c.Send(pdfBytes)
}

func invoiceNumberParam(c *fiber.Ctx) (string, error) {
	number, err := url.PathUnescape(c.Params("invoice_number"))
	if err != nil || number == "" {
		return "", errors.New("invoice_number inválido")
	}
	return number, nil
}

// writeError traduce errores de dominio a respuestas HTTP.
func writeError(c *fiber.Ctx, err error) error {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ValidationErrorResponse(verr.Fields))
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: "factura no encontrada"})
	default:
		log.Error().Err(err).Str("method", c.Method()).Str("path", c.Path()).Msg("error no controlado")
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "error interno"})
	}
}

// writeBodyError distingue un JSON ilegible ({"error": ...}) de un campo con tipo incorrecto,
// que se reporta como error de validación de ese campo.
func writeBodyError(c *fiber.Ctx, err error) error {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return writeError(c, domain.FieldError(typeErr.Field, "valor inválido"))
	}
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "cuerpo inválido: " + err.Error()})
}
