package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/jhoicas/Facturas-api/internal/application/dto"
	"github.com/jhoicas/Facturas-api/internal/domain"
	"github.com/jhoicas/Facturas-api/internal/domain/entity"
	"github.com/jhoicas/Facturas-api/internal/domain/repository"
)

// InvoiceUseCase casos de uso CRUD para facturas y sus detalles.
type InvoiceUseCase struct {
	txRunner TxRunner
	repo     repository.InvoiceRepository
	now      func() time.Time
}

// NewInvoiceUseCase construye el caso de uso.
func NewInvoiceUseCase(txRunner TxRunner, repo repository.InvoiceRepository) *InvoiceUseCase {
	return &InvoiceUseCase{
		txRunner: txRunner,
		repo:     repo,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// List devuelve las facturas con sus detalles. limit <= 0 devuelve todas.
func (uc *InvoiceUseCase) List(ctx context.Context, limit, offset int) (*dto.InvoiceListResult, error) {
	if offset < 0 {
		offset = 0
	}
	list, err := uc.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	total, err := uc.repo.Count(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]dto.InvoiceResponse, 0, len(list))
	for _, inv := range list {
		items = append(items, *toInvoiceResponse(inv))
	}
	return &dto.InvoiceListResult{Items: items, Total: total}, nil
}

// Get obtiene una factura por su número. Devuelve domain.ErrNotFound si no existe.
func (uc *InvoiceUseCase) Get(ctx context.Context, number string) (*dto.InvoiceResponse, error) {
	inv, err := uc.repo.GetByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, domain.ErrNotFound
	}
	return toInvoiceResponse(inv), nil
}

// Create valida el cuerpo y guarda la factura con todas sus líneas en una sola transacción.
func (uc *InvoiceUseCase) Create(ctx context.Context, in dto.InvoiceRequest) (*dto.InvoiceResponse, error) {
	inv, err := buildInvoice(in)
	if err != nil {
		return nil, err
	}
	now := uc.now()
	inv.ID = uuid.New().String()
	inv.CreatedAt = now
	inv.UpdatedAt = now
	assignDetailIDs(inv.Details)
	inv.Prepare()

	err = uc.txRunner.Run(ctx, func(repo repository.InvoiceRepository) error {
		existing, err := repo.GetByNumber(ctx, inv.InvoiceNumber)
		if err != nil {
			return err
		}
		if existing != nil {
			return duplicateNumberError()
		}
		return repo.Create(ctx, inv)
	})
	if err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			return nil, duplicateNumberError()
		}
		return nil, err
	}

	log.Info().
		Str("invoice_number", inv.InvoiceNumber).
		Int("details", len(inv.Details)).
		Msg("factura creada")
	return toInvoiceResponse(inv), nil
}

// Update reemplaza por completo la factura identificada por number: sobrescribe
// invoice_number, customer_name y date, y sustituye todas las líneas por las del cuerpo.
func (uc *InvoiceUseCase) Update(ctx context.Context, number string, in dto.InvoiceRequest) (*dto.InvoiceResponse, error) {
	var updated *entity.Invoice
	err := uc.txRunner.Run(ctx, func(repo repository.InvoiceRepository) error {
		current, err := repo.GetByNumber(ctx, number)
		if err != nil {
			return err
		}
		if current == nil {
			return domain.ErrNotFound
		}
		payload, err := buildInvoice(in)
		if err != nil {
			return err
		}
		if payload.InvoiceNumber != current.InvoiceNumber {
			other, err := repo.GetByNumber(ctx, payload.InvoiceNumber)
			if err != nil {
				return err
			}
			if other != nil {
				return duplicateNumberError()
			}
		}

		current.InvoiceNumber = payload.InvoiceNumber
		current.CustomerName = payload.CustomerName
		current.Date = payload.Date
		current.UpdatedAt = uc.now()
		assignDetailIDs(payload.Details)
		current.ReplaceDetails(payload.Details)
		if err := repo.Update(ctx, current); err != nil {
			return err
		}
		updated = current
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			return nil, duplicateNumberError()
		}
		return nil, err
	}

	log.Info().
		Str("invoice_number", number).
		Str("new_invoice_number", updated.InvoiceNumber).
		Int("details", len(updated.Details)).
		Msg("factura actualizada")
	return toInvoiceResponse(updated), nil
}

// Delete elimina la factura y, en cascada, sus líneas.
func (uc *InvoiceUseCase) Delete(ctx context.Context, number string) error {
	inv, err := uc.repo.GetByNumber(ctx, number)
	if err != nil {
		return err
	}
	if inv == nil {
		return domain.ErrNotFound
	}
	if err := uc.repo.Delete(ctx, inv.ID); err != nil {
		return fmt.Errorf("eliminar factura %s: %w", number, err)
	}
	log.Info().Str("invoice_number", number).Msg("factura eliminada")
	return nil
}

func assignDetailIDs(details []*entity.InvoiceDetail) {
	for _, d := range details {
		d.ID = uuid.New().String()
	}
}
