package repository

import (
	"context"

	"github.com/jhoicas/Facturas-api/internal/domain/entity"
)

// InvoiceRepository define el puerto de persistencia para Invoice y sus detalles.
// Los detalles se leen y escriben siempre junto con su factura.
type InvoiceRepository interface {
	// Create persiste la cabecera y todas sus líneas. Devuelve domain.ErrDuplicate si el número ya existe.
	Create(ctx context.Context, invoice *entity.Invoice) error
	// Update sobrescribe la cabecera y reemplaza todas las líneas.
	Update(ctx context.Context, invoice *entity.Invoice) error
	// Delete elimina la factura y sus líneas. Devuelve domain.ErrNotFound si no existe.
	Delete(ctx context.Context, id string) error
	// GetByNumber devuelve (nil, nil) si no existe.
	GetByNumber(ctx context.Context, number string) (*entity.Invoice, error)
	// List ordena por fecha descendente y número; limit <= 0 devuelve todas.
	List(ctx context.Context, limit, offset int) ([]*entity.Invoice, error)
	Count(ctx context.Context) (int, error)
}
