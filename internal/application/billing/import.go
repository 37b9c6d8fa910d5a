package billing

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/jhoicas/Facturas-api/internal/application/dto"
)

// Columnas esperadas del CSV de importación (una fila por línea de detalle).
var csvColumns = []string{"invoice_number", "customer_name", "date", "description", "quantity", "unit_price"}

// ImportFailure factura que no se pudo importar.
type ImportFailure struct {
	InvoiceNumber string
	Err           error
}

// ImportReport resultado de una importación masiva.
type ImportReport struct {
	Created []string
	Failed  []ImportFailure
}

// ParseInvoiceCSV lee el CSV y agrupa las filas por invoice_number, conservando el orden de aparición.
// charset admite "utf-8" (por defecto) o "iso-8859-1" para exportaciones de sistemas heredados.
// customer_name y date se toman de la primera fila de cada factura.
func ParseInvoiceCSV(r io.Reader, charset string) ([]dto.InvoiceRequest, error) {
	switch strings.ToLower(strings.TrimSpace(charset)) {
	case "", "utf-8", "utf8":
	case "iso-8859-1", "iso8859-1", "latin1":
		r = transform.NewReader(r, charmap.ISO8859_1.NewDecoder())
	default:
		return nil, fmt.Errorf("charset no soportado: %s", charset)
	}

	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("leer encabezado CSV: %w", err)
	}
	idx, err := columnIndex(header)
	if err != nil {
		return nil, err
	}

	var order []string
	byNumber := make(map[string]*dto.InvoiceRequest)
	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("leer fila %d: %w", line, err)
		}
		get := func(col string) string { return strings.TrimSpace(rec[idx[col]]) }

		number := get("invoice_number")
		if number == "" {
			return nil, fmt.Errorf("fila %d: invoice_number vacío", line)
		}
		qty := get("quantity")
		if _, err := decimal.NewFromString(qty); err != nil {
			return nil, fmt.Errorf("fila %d: quantity inválida: %w", line, err)
		}
		price := get("unit_price")
		if _, err := decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("fila %d: unit_price inválido: %w", line, err)
		}

		req, ok := byNumber[number]
		if !ok {
			req = &dto.InvoiceRequest{
				InvoiceNumber: number,
				CustomerName:  get("customer_name"),
				Date:          get("date"),
				Details:       []dto.InvoiceDetailRequest{},
			}
			byNumber[number] = req
			order = append(order, number)
		}
		req.Details = append(req.Details, dto.InvoiceDetailRequest{
			Description: get("description"),
			Quantity:    csvAmount(qty),
			UnitPrice:   csvAmount(price),
		})
	}

	out := make([]dto.InvoiceRequest, 0, len(order))
	for _, n := range order {
		out = append(out, *byNumber[n])
	}
	return out, nil
}

// csvAmount conserva el texto de la celda como string JSON; el rango se valida en Create.
func csvAmount(s string) json.RawMessage {
	return json.RawMessage(strconv.Quote(s))
}

func columnIndex(header []string) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	for _, c := range csvColumns {
		if _, ok := idx[c]; !ok {
			return nil, fmt.Errorf("falta la columna %q en el CSV", c)
		}
	}
	return idx, nil
}

// Import crea cada factura con el mismo flujo que POST /invoices/. Un fallo no detiene el lote.
func (uc *InvoiceUseCase) Import(ctx context.Context, reqs []dto.InvoiceRequest) ImportReport {
	var report ImportReport
	for _, req := range reqs {
		if err := ctx.Err(); err != nil {
			report.Failed = append(report.Failed, ImportFailure{InvoiceNumber: req.InvoiceNumber, Err: err})
			continue
		}
		out, err := uc.Create(ctx, req)
		if err != nil {
			log.Warn().Err(err).Str("invoice_number", req.InvoiceNumber).Msg("importación: factura rechazada")
			report.Failed = append(report.Failed, ImportFailure{InvoiceNumber: req.InvoiceNumber, Err: err})
			continue
		}
		report.Created = append(report.Created, out.InvoiceNumber)
	}
	return report
}
