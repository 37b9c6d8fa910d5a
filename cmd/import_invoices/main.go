// import_invoices carga facturas desde un CSV (una fila por línea de detalle) en el almacenamiento configurado.
//
// Uso: go run ./cmd/import_invoices [-charset iso-8859-1] facturas.csv
// Columnas: invoice_number, customer_name, date, description, quantity, unit_price.
// Cada factura pasa por las mismas validaciones que POST /invoices/.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jhoicas/Facturas-api/internal/application/billing"
	"github.com/jhoicas/Facturas-api/internal/infrastructure/store"
	"github.com/jhoicas/Facturas-api/pkg/config"
	"github.com/jhoicas/Facturas-api/pkg/logger"
)

func main() {
	charset := flag.String("charset", "utf-8", "codificación del CSV: utf-8 o iso-8859-1")
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Uso: import_invoices [-charset iso-8859-1] <archivo.csv>")
		os.Exit(2)
	}
	csvPath := flag.Arg(0)

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cargar configuración: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel})

	f, err := os.Open(csvPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Abrir CSV: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	reqs, err := billing.ParseInvoiceCSV(f, *charset)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Leer CSV: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("abrir almacenamiento")
	}
	defer st.Close()

	uc := billing.NewInvoiceUseCase(st.TxRunner, st.InvoiceRepo)
	report := uc.Import(ctx, reqs)

	for _, n := range report.Created {
		fmt.Printf("OK     %s\n", n)
	}
	for _, fail := range report.Failed {
		fmt.Printf("ERROR  %s: %v\n", fail.InvoiceNumber, fail.Err)
	}
	fmt.Printf("\nImportadas: %d, rechazadas: %d\n", len(report.Created), len(report.Failed))
	log.Info().Int("created", len(report.Created)).Int("failed", len(report.Failed)).Str("file", csvPath).Msg("importación finalizada")

	if len(report.Failed) > 0 {
		st.Close()
		os.Exit(1)
	}
}
