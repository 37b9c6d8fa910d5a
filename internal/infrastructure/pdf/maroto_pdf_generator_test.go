package pdf

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Facturas-api/internal/domain/entity"
)

func TestFormatMoney(t *testing.T) {
	cases := map[string]string{
		"0":          "0.00",
		"10":         "10.00",
		"999.5":      "999.50",
		"1000":       "1,000.00",
		"1234567.5":  "1,234,567.50",
		"-12345.678": "-12,345.68",
	}
	for in, want := range cases {
		assert.Equal(t, want, formatMoney(decimal.RequireFromString(in)), in)
	}
}

func TestGenerateInvoicePDF(t *testing.T) {
	inv := &entity.Invoice{
		ID:            "inv-1",
		InvoiceNumber: "INV-001",
		CustomerName:  "Acme",
		Date:          time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	inv.ReplaceDetails([]*entity.InvoiceDetail{
		entity.NewInvoiceDetail("Widget", decimal.NewFromInt(2), decimal.RequireFromString("5.00")),
	})

	b, err := NewMarotoPDFGenerator("facturas-api").GenerateInvoicePDF(context.Background(), inv)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(b, []byte("%PDF")))
}

func TestGenerateInvoicePDF_SinDetalles(t *testing.T) {
	inv := &entity.Invoice{InvoiceNumber: "INV-002", CustomerName: "Acme", Date: time.Now()}
	b, err := NewMarotoPDFGenerator("").GenerateInvoicePDF(context.Background(), inv)
	require.NoError(t, err)
	assert.NotEmpty(t, b)
}
