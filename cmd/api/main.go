package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"

	"github.com/jhoicas/Facturas-api/internal/application/billing"
	"github.com/jhoicas/Facturas-api/internal/infrastructure/metrics"
	infrapdf "github.com/jhoicas/Facturas-api/internal/infrastructure/pdf"
	"github.com/jhoicas/Facturas-api/internal/infrastructure/store"
	httpRouter "github.com/jhoicas/Facturas-api/internal/interfaces/http"
	"github.com/jhoicas/Facturas-api/pkg/config"
	"github.com/jhoicas/Facturas-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("store", cfg.Store.Driver).
		Msg("iniciando aplicación")

	ctx := context.Background()
	st, err := store.Open(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("abrir almacenamiento")
	}
	defer st.Close()

	invoiceUC := billing.NewInvoiceUseCase(st.TxRunner, st.InvoiceRepo)

	// PDF: representación gráfica de la factura
	pdfGenerator := infrapdf.NewMarotoPDFGenerator(cfg.App.Name)
	invoicePDFUC := billing.NewPDFUseCase(st.InvoiceRepo, pdfGenerator)

	app := httpRouter.NewApp(httpRouter.AppConfig{
		Name:             cfg.App.Name,
		CORSAllowOrigins: cfg.HTTP.CORSAllowOrigins,
		Logger:           log.With().Str("component", "http").Logger(),
		Metrics:          metrics.New(),
	}, httpRouter.RouterDeps{
		InvoiceUC:  invoiceUC,
		InvoicePDF: invoicePDFUC,
	})

	// Swagger UI en local: http://localhost:<port>/docs
	if cfg.Swagger.FilePath != "" {
		if _, err := os.Stat(cfg.Swagger.FilePath); err == nil {
			app.Use(swagger.New(swagger.Config{
				BasePath: "/",
				FilePath: cfg.Swagger.FilePath,
				Path:     "docs",
				Title:    "Facturas API",
			}))
		} else {
			log.Warn().Str("file", cfg.Swagger.FilePath).Msg("swagger deshabilitado: archivo no encontrado")
		}
	}

	log.Debug().
		Str("addr", cfg.HTTP.Addr()).
		Str("cors", cfg.HTTP.CORSAllowOrigins).
		Msg("servidor HTTP configurado")

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
