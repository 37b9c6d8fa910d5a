package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Facturas-api/internal/application/billing"
	"github.com/jhoicas/Facturas-api/internal/domain/entity"
	"github.com/jhoicas/Facturas-api/internal/domain/repository"
	"github.com/jhoicas/Facturas-api/internal/infrastructure/memory"
	"github.com/jhoicas/Facturas-api/internal/infrastructure/metrics"
	apphttp "github.com/jhoicas/Facturas-api/internal/interfaces/http"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

const inv001 = `{
	"invoice_number": "INV-001",
	"customer_name": "Acme",
	"date": "2024-01-01",
	"details": [{"description": "Widget", "quantity": 2, "unit_price": "5.00"}]
}`

type stubPDF struct{}

func (stubPDF) GenerateInvoicePDF(_ context.Context, inv *entity.Invoice) ([]byte, error) {
	return []byte("%PDF-1.3 " + inv.InvoiceNumber), nil
}

// buildTestApp construye la aplicación completa sobre el almacenamiento en memoria.
func buildTestApp(t *testing.T) (*fiber.App, *memory.InvoiceRepo) {
	t.Helper()
	repo := memory.NewInvoiceRepository()
	app := apphttp.NewApp(apphttp.AppConfig{
		Name:             "facturas-api-test",
		CORSAllowOrigins: "*",
		Logger:           zerolog.Nop(),
		Metrics:          metrics.New(),
	}, apphttp.RouterDeps{
		InvoiceUC:  billing.NewInvoiceUseCase(repo, repo),
		InvoicePDF: billing.NewPDFUseCase(repo, stubPDF{}),
	})
	return app, repo
}

func doRequest(t *testing.T, app *fiber.App, method, path, body string) *http.Response {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

type detailJSON struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Quantity    string `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
	LineTotal   string `json:"line_total"`
}

type invoiceJSON struct {
	InvoiceNumber string       `json:"invoice_number"`
	CustomerName  string       `json:"customer_name"`
	Date          string       `json:"date"`
	Details       []detailJSON `json:"details"`
	TotalAmount   string       `json:"total_amount"`
}

// ──────────────────────────────────────────────────────────────────────────────
// Crear / obtener
// ──────────────────────────────────────────────────────────────────────────────

func TestCreate_EjemploINV001(t *testing.T) {
	app, _ := buildTestApp(t)

	resp := doRequest(t, app, http.MethodPost, "/invoices/", inv001)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	out := decode[invoiceJSON](t, resp)
	assert.Equal(t, "INV-001", out.InvoiceNumber)
	assert.Equal(t, "Acme", out.CustomerName)
	assert.Equal(t, "2024-01-01", out.Date)
	require.Len(t, out.Details, 1)
	assert.Equal(t, "10.00", out.Details[0].LineTotal)
	assert.Equal(t, "2.00", out.Details[0].Quantity)
	assert.NotEmpty(t, out.Details[0].ID)
	assert.Equal(t, "10.00", out.TotalAmount)
}

func TestCreate_SinBarraFinal(t *testing.T) {
	app, _ := buildTestApp(t)
	resp := doRequest(t, app, http.MethodPost, "/invoices", inv001)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
}

func TestCreate_Duplicado400(t *testing.T) {
	app, _ := buildTestApp(t)
	require.Equal(t, fiber.StatusCreated, doRequest(t, app, http.MethodPost, "/invoices/", inv001).StatusCode)

	resp := doRequest(t, app, http.MethodPost, "/invoices/", inv001)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	body := decode[map[string][]string](t, resp)
	assert.Equal(t, []string{"ya existe una factura con este invoice_number"}, body["invoice_number"])
}

func TestCreate_Validacion400(t *testing.T) {
	app, repo := buildTestApp(t)

	resp := doRequest(t, app, http.MethodPost, "/invoices/", `{
		"invoice_number": "INV-002",
		"date": "2024-01-01",
		"details": [{"description": "x", "quantity": 0, "unit_price": "1.999"}]
	}`)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	body := decode[map[string][]string](t, resp)
	assert.Contains(t, body, "customer_name")
	assert.Contains(t, body, "details[0].quantity")
	assert.Contains(t, body, "details[0].unit_price")

	n, _ := repo.Count(context.Background())
	assert.Zero(t, n)
}

func TestCreate_CuerpoMalformado(t *testing.T) {
	app, _ := buildTestApp(t)
	resp := doRequest(t, app, http.MethodPost, "/invoices/", `{"invoice_number": `)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	body := decode[map[string]string](t, resp)
	assert.Contains(t, body["error"], "cuerpo inválido")
}

func TestCreate_MontoNoNumerico400PorCampo(t *testing.T) {
	app, _ := buildTestApp(t)

	resp := doRequest(t, app, http.MethodPost, "/invoices/", `{
		"invoice_number": "INV-003", "customer_name": "Acme", "date": "2024-01-01",
		"details": [
			{"description": "a", "quantity": 1, "unit_price": 1},
			{"description": "b", "quantity": "abc", "unit_price": 1}
		]
	}`)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	body := decode[map[string][]string](t, resp)
	assert.Equal(t, []string{"se requiere un número válido"}, body["details[1].quantity"])
	assert.NotContains(t, body, "error")
}

func TestCreate_TipoIncorrecto400PorCampo(t *testing.T) {
	app, _ := buildTestApp(t)

	for field, payload := range map[string]string{
		"date": `{"invoice_number": "INV-004", "customer_name": "Acme", "date": 20240101, "details": []}`,
		"details": `{"invoice_number": "INV-004", "customer_name": "Acme", "date": "2024-01-01", "details": {"description": "x"}}`,
		"invoice_number": `{"invoice_number": 4, "customer_name": "Acme", "date": "2024-01-01", "details": []}`,
	} {
		resp := doRequest(t, app, http.MethodPost, "/invoices/", payload)
		require.Equal(t, fiber.StatusBadRequest, resp.StatusCode, field)
		body := decode[map[string][]string](t, resp)
		assert.Equal(t, []string{"valor inválido"}, body[field], field)
	}
}

func TestUpdate_TipoIncorrecto400PorCampo(t *testing.T) {
	app, _ := buildTestApp(t)
	require.Equal(t, fiber.StatusCreated, doRequest(t, app, http.MethodPost, "/invoices/", inv001).StatusCode)

	resp := doRequest(t, app, http.MethodPut, "/invoices/INV-001/",
		`{"invoice_number": "INV-001", "customer_name": ["Acme"], "date": "2024-01-01", "details": []}`)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	body := decode[map[string][]string](t, resp)
	assert.Equal(t, []string{"valor inválido"}, body["customer_name"])
}

func TestGet_RoundTrip(t *testing.T) {
	app, _ := buildTestApp(t)
	created := decode[invoiceJSON](t, doRequest(t, app, http.MethodPost, "/invoices/", inv001))

	resp := doRequest(t, app, http.MethodGet, "/invoices/INV-001/", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, created, decode[invoiceJSON](t, resp))
}

func TestNoExiste404(t *testing.T) {
	app, _ := buildTestApp(t)

	for _, tc := range []struct{ method, body string }{
		{http.MethodGet, ""},
		{http.MethodPut, inv001},
		{http.MethodDelete, ""},
	} {
		resp := doRequest(t, app, tc.method, "/invoices/NOPE/", tc.body)
		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode, tc.method)
		body := decode[map[string]string](t, resp)
		assert.Equal(t, "factura no encontrada", body["error"], tc.method)
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Actualizar / eliminar / listar
// ──────────────────────────────────────────────────────────────────────────────

func TestUpdate_ReemplazoCompleto(t *testing.T) {
	app, repo := buildTestApp(t)
	require.Equal(t, fiber.StatusCreated, doRequest(t, app, http.MethodPost, "/invoices/", `{
		"invoice_number": "INV-001", "customer_name": "Acme", "date": "2024-01-01",
		"details": [
			{"description": "a", "quantity": 1, "unit_price": 1},
			{"description": "b", "quantity": 2, "unit_price": 2}
		]
	}`).StatusCode)

	resp := doRequest(t, app, http.MethodPut, "/invoices/INV-001/", `{
		"invoice_number": "INV-001", "customer_name": "Globex", "date": "2024-02-02",
		"details": [{"description": "c", "quantity": "3", "unit_price": "1.10", "line_total": "999"}]
	}`)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	out := decode[invoiceJSON](t, resp)
	assert.Equal(t, "Globex", out.CustomerName)
	require.Len(t, out.Details, 1)
	assert.Equal(t, "c", out.Details[0].Description)
	assert.Equal(t, "3.30", out.Details[0].LineTotal)

	stored, err := repo.GetByNumber(context.Background(), "INV-001")
	require.NoError(t, err)
	assert.Len(t, stored.Details, 1)

	resp = doRequest(t, app, http.MethodPut, "/invoices/INV-001", `{
		"invoice_number": "INV-001", "customer_name": "Globex", "date": "2024-02-02", "details": []
	}`)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Empty(t, decode[invoiceJSON](t, resp).Details)
}

func TestUpdate_CamposFaltantes400(t *testing.T) {
	app, _ := buildTestApp(t)
	doRequest(t, app, http.MethodPost, "/invoices/", inv001)

	resp := doRequest(t, app, http.MethodPut, "/invoices/INV-001/", `{"customer_name": "Globex"}`)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	body := decode[map[string][]string](t, resp)
	assert.Contains(t, body, "invoice_number")
	assert.Contains(t, body, "details")
}

func TestDelete_Cascada(t *testing.T) {
	app, repo := buildTestApp(t)
	doRequest(t, app, http.MethodPost, "/invoices/", inv001)

	resp := doRequest(t, app, http.MethodDelete, "/invoices/INV-001/", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "factura eliminada correctamente", decode[map[string]string](t, resp)["message"])

	inv, err := repo.GetByNumber(context.Background(), "INV-001")
	require.NoError(t, err)
	assert.Nil(t, inv)
	assert.Equal(t, fiber.StatusNotFound, doRequest(t, app, http.MethodGet, "/invoices/INV-001/", "").StatusCode)
}

func TestList_OrdenPaginacionYTotal(t *testing.T) {
	app, _ := buildTestApp(t)

	resp := doRequest(t, app, http.MethodGet, "/invoices/", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	raw, _ := io.ReadAll(resp.Body)
	assert.JSONEq(t, `[]`, string(raw))

	for _, body := range []string{
		`{"invoice_number": "B", "customer_name": "x", "date": "2024-01-01", "details": []}`,
		`{"invoice_number": "A", "customer_name": "x", "date": "2024-01-01", "details": []}`,
		`{"invoice_number": "C", "customer_name": "x", "date": "2024-03-01", "details": [{"description": "d", "quantity": 1, "unit_price": 1}]}`,
	} {
		require.Equal(t, fiber.StatusCreated, doRequest(t, app, http.MethodPost, "/invoices/", body).StatusCode)
	}

	resp = doRequest(t, app, http.MethodGet, "/invoices/", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "3", resp.Header.Get(apphttp.HeaderTotalCount))
	list := decode[[]invoiceJSON](t, resp)
	require.Len(t, list, 3)
	assert.Equal(t, "C", list[0].InvoiceNumber)
	assert.Len(t, list[0].Details, 1)
	assert.Equal(t, "A", list[1].InvoiceNumber)
	assert.Equal(t, "B", list[2].InvoiceNumber)

	resp = doRequest(t, app, http.MethodGet, "/invoices/?limit=1&offset=2", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "3", resp.Header.Get(apphttp.HeaderTotalCount))
	page := decode[[]invoiceJSON](t, resp)
	require.Len(t, page, 1)
	assert.Equal(t, "B", page[0].InvoiceNumber)
}

// ──────────────────────────────────────────────────────────────────────────────
// PDF, health, métricas
// ──────────────────────────────────────────────────────────────────────────────

func TestDownloadPDF(t *testing.T) {
	app, _ := buildTestApp(t)
	doRequest(t, app, http.MethodPost, "/invoices/", inv001)

	resp := doRequest(t, app, http.MethodGet, "/invoices/INV-001/pdf", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	assert.Equal(t, `attachment; filename="factura_INV-001.pdf"`, resp.Header.Get("Content-Disposition"))
	raw, _ := io.ReadAll(resp.Body)
	assert.True(t, bytes.HasPrefix(raw, []byte("%PDF")))

	assert.Equal(t, fiber.StatusNotFound, doRequest(t, app, http.MethodGet, "/invoices/NOPE/pdf", "").StatusCode)
}

func TestHealthYMetrics(t *testing.T) {
	app, _ := buildTestApp(t)

	resp := doRequest(t, app, http.MethodGet, "/health", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", decode[map[string]string](t, resp)["status"])

	doRequest(t, app, http.MethodGet, "/invoices/", "")
	resp = doRequest(t, app, http.MethodGet, "/metrics", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	raw, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(raw), "facturas_api_http_requests_total")
}

func TestCORS(t *testing.T) {
	app, _ := buildTestApp(t)
	req := httptest.NewRequest(http.MethodGet, "/invoices/", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

// ──────────────────────────────────────────────────────────────────────────────
// Errores del almacenamiento
// ──────────────────────────────────────────────────────────────────────────────

var errStore = errors.New(`ERROR: relation "invoices" does not exist (SQLSTATE 42P01)`)

// brokenStore simula un almacenamiento caído en cada operación.
type brokenStore struct{}

func (brokenStore) Run(context.Context, func(repository.InvoiceRepository) error) error { return errStore }
func (brokenStore) Create(context.Context, *entity.Invoice) error                       { return errStore }
func (brokenStore) Update(context.Context, *entity.Invoice) error                       { return errStore }
func (brokenStore) Delete(context.Context, string) error                                { return errStore }
func (brokenStore) GetByNumber(context.Context, string) (*entity.Invoice, error)        { return nil, errStore }
func (brokenStore) List(context.Context, int, int) ([]*entity.Invoice, error)           { return nil, errStore }
func (brokenStore) Count(context.Context) (int, error)                                  { return 0, errStore }

func TestErrorInterno_NoExponeDetalles(t *testing.T) {
	store := brokenStore{}
	app := apphttp.NewApp(apphttp.AppConfig{Name: "facturas-api-test", Logger: zerolog.Nop()}, apphttp.RouterDeps{
		InvoiceUC:  billing.NewInvoiceUseCase(store, store),
		InvoicePDF: billing.NewPDFUseCase(store, stubPDF{}),
	})

	for _, tc := range []struct{ method, path, body string }{
		{http.MethodGet, "/invoices/", ""},
		{http.MethodGet, "/invoices/INV-001/", ""},
		{http.MethodPost, "/invoices/", inv001},
		{http.MethodDelete, "/invoices/INV-001/", ""},
		{http.MethodGet, "/invoices/INV-001/pdf", ""},
	} {
		resp := doRequest(t, app, tc.method, tc.path, tc.body)
		require.Equal(t, fiber.StatusInternalServerError, resp.StatusCode, tc.method+" "+tc.path)
		raw, _ := io.ReadAll(resp.Body)
		assert.JSONEq(t, `{"error": "error interno"}`, string(raw), tc.method+" "+tc.path)
		assert.NotContains(t, string(raw), "SQLSTATE")
	}
}
