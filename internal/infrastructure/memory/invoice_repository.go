// Package memory implementa el almacenamiento de facturas en memoria del proceso.
// Se usa en desarrollo local (STORE_DRIVER=memory) y en los tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/jhoicas/Facturas-api/internal/application/billing"
	"github.com/jhoicas/Facturas-api/internal/domain"
	"github.com/jhoicas/Facturas-api/internal/domain/entity"
	"github.com/jhoicas/Facturas-api/internal/domain/repository"
)

var (
	_ repository.InvoiceRepository = (*InvoiceRepo)(nil)
	_ billing.TxRunner             = (*InvoiceRepo)(nil)
)

// InvoiceRepo guarda copias de las facturas; nunca expone punteros internos.
type InvoiceRepo struct {
	mu      sync.RWMutex
	byID    map[string]*entity.Invoice
	idByNum map[string]string
	txMu    sync.Mutex
}

// NewInvoiceRepository construye el repositorio vacío.
func NewInvoiceRepository() *InvoiceRepo {
	return &InvoiceRepo{
		byID:    make(map[string]*entity.Invoice),
		idByNum: make(map[string]string),
	}
}

// Run serializa las transacciones: fn ve un estado consistente entre lectura y escritura.
func (r *InvoiceRepo) Run(ctx context.Context, fn func(invoiceRepo repository.InvoiceRepository) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.txMu.Lock()
	defer r.txMu.Unlock()
	return fn(r)
}

// Create guarda la factura con sus líneas.
func (r *InvoiceRepo) Create(_ context.Context, invoice *entity.Invoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.idByNum[invoice.InvoiceNumber]; ok {
		return domain.ErrDuplicate
	}
	inv := invoice.Clone()
	inv.Prepare()
	r.byID[inv.ID] = inv
	r.idByNum[inv.InvoiceNumber] = inv.ID
	return nil
}

// Update sobrescribe la factura completa, incluido un posible cambio de número.
func (r *InvoiceRepo) Update(_ context.Context, invoice *entity.Invoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.byID[invoice.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if id, taken := r.idByNum[invoice.InvoiceNumber]; taken && id != invoice.ID {
		return domain.ErrDuplicate
	}
	delete(r.idByNum, current.InvoiceNumber)
	inv := invoice.Clone()
	inv.Prepare()
	r.byID[inv.ID] = inv
	r.idByNum[inv.InvoiceNumber] = inv.ID
	return nil
}

// Delete elimina la factura; sus líneas desaparecen con ella.
func (r *InvoiceRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	delete(r.idByNum, inv.InvoiceNumber)
	delete(r.byID, id)
	return nil
}

// GetByNumber devuelve (nil, nil) si no existe.
func (r *InvoiceRepo) GetByNumber(_ context.Context, number string) (*entity.Invoice, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.idByNum[number]
	if !ok {
		return nil, nil
	}
	return r.byID[id].Clone(), nil
}

// List ordena por fecha descendente y número ascendente.
func (r *InvoiceRepo) List(_ context.Context, limit, offset int) ([]*entity.Invoice, error) {
	r.mu.RLock()
	list := make([]*entity.Invoice, 0, len(r.byID))
	for _, inv := range r.byID {
		list = append(list, inv.Clone())
	}
	r.mu.RUnlock()

	sort.Slice(list, func(i, j int) bool {
		if !list[i].Date.Equal(list[j].Date) {
			return list[i].Date.After(list[j].Date)
		}
		return list[i].InvoiceNumber < list[j].InvoiceNumber
	})
	if offset < 0 {
		offset = 0
	}
	if offset >= len(list) {
		return []*entity.Invoice{}, nil
	}
	list = list[offset:]
	if limit > 0 && limit < len(list) {
		list = list[:limit]
	}
	return list, nil
}

// Count total de facturas.
func (r *InvoiceRepo) Count(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID), nil
}
