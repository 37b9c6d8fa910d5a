package billing

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/Facturas-api/internal/application/dto"
	"github.com/jhoicas/Facturas-api/internal/domain"
	"github.com/jhoicas/Facturas-api/internal/domain/entity"
)

// Mensajes de validación expuestos en la API.
const (
	msgRequired       = "este campo es requerido"
	msgDuplicate      = "ya existe una factura con este invoice_number"
	msgInvalidDate    = "formato de fecha inválido, use YYYY-MM-DD"
	msgPositive       = "debe ser mayor que 0"
	msgNonNegative    = "debe ser mayor o igual a 0"
	msgDecimalPlaces  = "asegúrese de que no haya más de 2 decimales"
	msgMaxDigits      = "asegúrese de que no haya más de 10 dígitos en total"
	msgLineTotalRange = "el total de la línea excede el máximo permitido"
	msgInvalidNumber  = "se requiere un número válido"
)

// maxAmount límite exclusivo de cantidades, precios y totales (NUMERIC(10,2)).
var maxAmount = decimal.New(1, 8)

// Cotas sobre coeficiente y exponente que se comprueban sin reescalar el decimal:
// Round, Equal y Cmp expanden el coeficiente a 10^|exp|, con lo que 1e50000000 costaría minutos.
const (
	maxAmountExponent  = 8
	minAmountExponent  = -22 // con coeficiente <= 64 bits el valor es < 0.01
	maxCoefficientBits = 64
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Los errores se reportan con el nombre JSON del campo.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// buildInvoice valida el cuerpo y lo traduce a la entidad (sin IDs ni timestamps).
// Devuelve *domain.ValidationError con todos los campos inválidos.
func buildInvoice(in dto.InvoiceRequest) (*entity.Invoice, error) {
	normalize(&in)

	verr := domain.NewValidationError()
	if err := validate.Struct(in); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return nil, fmt.Errorf("validar factura: %w", err)
		}
		for _, fe := range fieldErrs {
			verr.Add(fieldPath(fe), fieldMessage(fe))
		}
	}

	var date time.Time
	if in.Date != "" {
		d, err := parseDate(in.Date)
		if err != nil {
			verr.Add("date", msgInvalidDate)
		}
		date = d
	}

	details := make([]*entity.InvoiceDetail, 0, len(in.Details))
	for i, item := range in.Details {
		prefix := fmt.Sprintf("details[%d].", i)
		qty, qtyOK := parseAmount(verr, prefix+"quantity", item.Quantity, false)
		price, priceOK := parseAmount(verr, prefix+"unit_price", item.UnitPrice, true)
		if !qtyOK || !priceOK {
			continue
		}
		d := entity.NewInvoiceDetail(item.Description, qty, price)
		if !d.LineTotal.Abs().LessThan(maxAmount) {
			verr.Add(prefix+"line_total", msgLineTotalRange)
		}
		details = append(details, d)
	}

	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	inv := &entity.Invoice{
		InvoiceNumber: in.InvoiceNumber,
		CustomerName:  in.CustomerName,
		Date:          date,
	}
	inv.ReplaceDetails(details)
	return inv, nil
}

func normalize(in *dto.InvoiceRequest) {
	in.InvoiceNumber = strings.TrimSpace(in.InvoiceNumber)
	in.CustomerName = strings.TrimSpace(in.CustomerName)
	in.Date = strings.TrimSpace(in.Date)
	for i := range in.Details {
		in.Details[i].Description = strings.TrimSpace(in.Details[i].Description)
	}
}

// parseAmount interpreta un monto JSON (número o string) y valida signo, decimales y rango.
// Un raw vacío ya lo reportó el validador como requerido. ok=false si el campo tiene errores.
func parseAmount(verr *domain.ValidationError, field string, raw json.RawMessage, allowZero bool) (decimal.Decimal, bool) {
	if len(raw) == 0 {
		return decimal.Zero, false
	}
	if string(raw) == "null" {
		verr.Add(field, msgRequired)
		return decimal.Zero, false
	}
	var v decimal.Decimal
	if err := v.UnmarshalJSON(raw); err != nil {
		verr.Add(field, msgInvalidNumber)
		return decimal.Zero, false
	}
	if v.IsZero() {
		// 0e50000000 también es cero; se normaliza para no arrastrar el exponente.
		v = decimal.Zero
	}
	return v, checkAmount(verr, field, v, allowZero)
}

func checkAmount(verr *domain.ValidationError, field string, v decimal.Decimal, allowZero bool) bool {
	ok := true
	switch {
	case allowZero && v.IsNegative():
		verr.Add(field, msgNonNegative)
		ok = false
	case !allowZero && !v.IsPositive():
		verr.Add(field, msgPositive)
		ok = false
	}
	if v.IsZero() {
		return ok
	}

	exp := v.Exponent()
	switch {
	case exp > maxAmountExponent || v.Coefficient().BitLen() > maxCoefficientBits:
		verr.Add(field, msgMaxDigits)
		return false
	case exp < minAmountExponent:
		verr.Add(field, msgDecimalPlaces)
		return false
	}

	if !v.Equal(v.Round(entity.LineTotalPlaces)) {
		verr.Add(field, msgDecimalPlaces)
		ok = false
	}
	if !v.Abs().LessThan(maxAmount) {
		verr.Add(field, msgMaxDigits)
		ok = false
	}
	return ok
}

// parseDate acepta YYYY-MM-DD o RFC 3339; en el segundo caso se conserva solo la fecha.
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(entity.DateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}

// fieldPath quita el nombre del struct raíz: "InvoiceRequest.details[0].quantity" -> "details[0].quantity".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return msgRequired
	case "max":
		return fmt.Sprintf("asegúrese de que este campo no tenga más de %s caracteres", fe.Param())
	default:
		return "valor inválido"
	}
}

func duplicateNumberError() error {
	return domain.FieldError("invoice_number", msgDuplicate)
}

func toInvoiceResponse(inv *entity.Invoice) *dto.InvoiceResponse {
	if inv == nil {
		return nil
	}
	details := make([]dto.InvoiceDetailResponse, 0, len(inv.Details))
	for _, d := range inv.Details {
		details = append(details, dto.InvoiceDetailResponse{
			ID:          d.ID,
			Description: d.Description,
			Quantity:    formatAmount(d.Quantity),
			UnitPrice:   formatAmount(d.UnitPrice),
			LineTotal:   formatAmount(d.LineTotal),
		})
	}
	return &dto.InvoiceResponse{
		InvoiceNumber: inv.InvoiceNumber,
		CustomerName:  inv.CustomerName,
		Date:          inv.Date.Format(entity.DateLayout),
		Details:       details,
		TotalAmount:   formatAmount(inv.TotalAmount()),
	}
}

func formatAmount(d decimal.Decimal) string {
	return d.StringFixed(entity.LineTotalPlaces)
}
