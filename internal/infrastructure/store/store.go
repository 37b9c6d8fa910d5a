// Package store abre el almacenamiento de facturas según STORE_DRIVER.
package store

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/jhoicas/Facturas-api/internal/application/billing"
	"github.com/jhoicas/Facturas-api/internal/domain/repository"
	"github.com/jhoicas/Facturas-api/internal/infrastructure/memory"
	"github.com/jhoicas/Facturas-api/internal/infrastructure/mongodb"
	"github.com/jhoicas/Facturas-api/internal/infrastructure/postgres"
	"github.com/jhoicas/Facturas-api/pkg/config"
)

// Store repositorio de facturas y su ejecutor de transacciones para el driver elegido.
type Store struct {
	Driver      string
	InvoiceRepo repository.InvoiceRepository
	TxRunner    billing.TxRunner

	closeFn func()
}

// Close libera las conexiones del driver.
func (s *Store) Close() {
	if s.closeFn != nil {
		s.closeFn()
	}
}

// Open conecta con el driver configurado y prepara el esquema o los índices.
func Open(ctx context.Context, cfg *config.Config) (*Store, error) {
	switch cfg.Store.Driver {
	case config.DriverPostgres:
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			return nil, fmt.Errorf("conexión a PostgreSQL: %w", err)
		}
		if err := postgres.EnsureSchema(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		log.Info().Str("driver", cfg.Store.Driver).Msg("almacenamiento listo")
		return &Store{
			Driver:      cfg.Store.Driver,
			InvoiceRepo: postgres.NewInvoiceRepository(pool),
			TxRunner:    postgres.NewTxRunner(pool),
			closeFn:     pool.Close,
		}, nil

	case config.DriverMongo:
		client, err := mongodb.Connect(ctx, cfg.Mongo)
		if err != nil {
			return nil, err
		}
		repo := mongodb.NewInvoiceRepository(client.Database(cfg.Mongo.Database))
		if err := repo.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, err
		}
		log.Info().Str("driver", cfg.Store.Driver).Str("database", cfg.Mongo.Database).Msg("almacenamiento listo")
		return &Store{
			Driver:      cfg.Store.Driver,
			InvoiceRepo: repo,
			TxRunner:    repo,
			closeFn: func() {
				if err := client.Disconnect(context.Background()); err != nil {
					log.Error().Err(err).Msg("desconectar MongoDB")
				}
			},
		}, nil

	case config.DriverMemory:
		repo := memory.NewInvoiceRepository()
		log.Warn().Msg("almacenamiento en memoria: los datos se pierden al reiniciar")
		return &Store{Driver: cfg.Store.Driver, InvoiceRepo: repo, TxRunner: repo}, nil

	default:
		return nil, fmt.Errorf("driver de almacenamiento no soportado: %q", cfg.Store.Driver)
	}
}
