package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/jhoicas/Facturas-api/internal/application/billing"
	"github.com/jhoicas/Facturas-api/internal/domain"
	"github.com/jhoicas/Facturas-api/internal/domain/entity"
	"github.com/jhoicas/Facturas-api/internal/domain/repository"
)

const invoicesCollection = "invoices"

var (
	_ repository.InvoiceRepository = (*InvoiceRepo)(nil)
	_ billing.TxRunner             = (*InvoiceRepo)(nil)
)

type invoiceDocument struct {
	ID            string           `bson:"_id"`
	InvoiceNumber string           `bson:"invoice_number"`
	CustomerName  string           `bson:"customer_name"`
	Date          time.Time        `bson:"date"`
	Details       []detailDocument `bson:"details"`
	CreatedAt     time.Time        `bson:"created_at"`
	UpdatedAt     time.Time        `bson:"updated_at"`
}

type detailDocument struct {
	ID          string               `bson:"id"`
	Description string               `bson:"description"`
	Quantity    primitive.Decimal128 `bson:"quantity"`
	UnitPrice   primitive.Decimal128 `bson:"unit_price"`
	LineTotal   primitive.Decimal128 `bson:"line_total"`
}

// InvoiceRepo repositorio de facturas sobre una colección MongoDB.
type InvoiceRepo struct {
	coll *mongo.Collection
}

// NewInvoiceRepository construye el repositorio sobre la colección "invoices".
func NewInvoiceRepository(db *mongo.Database) *InvoiceRepo {
	return &InvoiceRepo{coll: db.Collection(invoicesCollection)}
}

// EnsureIndexes crea el índice único de invoice_number y el de ordenamiento del listado.
func (r *InvoiceRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "invoice_number", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("invoice_number_unique"),
		},
		{
			Keys:    bson.D{{Key: "date", Value: -1}, {Key: "invoice_number", Value: 1}},
			Options: options.Index().SetName("date_desc_number"),
		},
	})
	if err != nil {
		return fmt.Errorf("crear índices: %w", err)
	}
	return nil
}

// Run ejecuta fn sobre el mismo repositorio: cada factura es un único documento,
// así que cada escritura ya es atómica.
func (r *InvoiceRepo) Run(ctx context.Context, fn func(invoiceRepo repository.InvoiceRepository) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(r)
}

// Create inserta el documento con las líneas embebidas.
func (r *InvoiceRepo) Create(ctx context.Context, invoice *entity.Invoice) error {
	doc, err := toDocument(invoice)
	if err != nil {
		return err
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("invoice number already exists: %w", domain.ErrDuplicate)
		}
		return fmt.Errorf("insert invoice: %w", err)
	}
	return nil
}

// Update reemplaza el documento completo, incluido el arreglo de líneas.
func (r *InvoiceRepo) Update(ctx context.Context, invoice *entity.Invoice) error {
	doc, err := toDocument(invoice)
	if err != nil {
		return err
	}
	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": invoice.ID}, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("invoice number already exists: %w", domain.ErrDuplicate)
		}
		return fmt.Errorf("update invoice: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete elimina el documento (y con él sus líneas).
func (r *InvoiceRepo) Delete(ctx context.Context, id string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete invoice: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GetByNumber devuelve (nil, nil) si no existe.
func (r *InvoiceRepo) GetByNumber(ctx context.Context, number string) (*entity.Invoice, error) {
	var doc invoiceDocument
	err := r.coll.FindOne(ctx, bson.M{"invoice_number": number}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("get invoice: %w", err)
	}
	return fromDocument(doc)
}

// List ordena por fecha descendente y número ascendente.
func (r *InvoiceRepo) List(ctx context.Context, limit, offset int) ([]*entity.Invoice, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "date", Value: -1}, {Key: "invoice_number", Value: 1}}).
		SetSkip(int64(offset))
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cursor, err := r.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []invoiceDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode invoices: %w", err)
	}
	list := make([]*entity.Invoice, 0, len(docs))
	for _, doc := range docs {
		inv, err := fromDocument(doc)
		if err != nil {
			return nil, err
		}
		list = append(list, inv)
	}
	return list, nil
}

// Count total de facturas.
func (r *InvoiceRepo) Count(ctx context.Context) (int, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("count invoices: %w", err)
	}
	return int(n), nil
}

func toDocument(inv *entity.Invoice) (invoiceDocument, error) {
	inv.Prepare()
	doc := invoiceDocument{
		ID:            inv.ID,
		InvoiceNumber: inv.InvoiceNumber,
		CustomerName:  inv.CustomerName,
		Date:          inv.Date.UTC(),
		Details:       make([]detailDocument, 0, len(inv.Details)),
		CreatedAt:     inv.CreatedAt,
		UpdatedAt:     inv.UpdatedAt,
	}
	for _, d := range inv.Details {
		qty, err := toDecimal128(d.Quantity)
		if err != nil {
			return doc, err
		}
		price, err := toDecimal128(d.UnitPrice)
		if err != nil {
			return doc, err
		}
		total, err := toDecimal128(d.LineTotal)
		if err != nil {
			return doc, err
		}
		doc.Details = append(doc.Details, detailDocument{
			ID:          d.ID,
			Description: d.Description,
			Quantity:    qty,
			UnitPrice:   price,
			LineTotal:   total,
		})
	}
	return doc, nil
}

func fromDocument(doc invoiceDocument) (*entity.Invoice, error) {
	inv := &entity.Invoice{
		ID:            doc.ID,
		InvoiceNumber: doc.InvoiceNumber,
		CustomerName:  doc.CustomerName,
		Date:          doc.Date.UTC(),
		Details:       make([]*entity.InvoiceDetail, 0, len(doc.Details)),
		CreatedAt:     doc.CreatedAt,
		UpdatedAt:     doc.UpdatedAt,
	}
	for i, d := range doc.Details {
		qty, err := decimal.NewFromString(d.Quantity.String())
		if err != nil {
			return nil, fmt.Errorf("decode quantity: %w", err)
		}
		price, err := decimal.NewFromString(d.UnitPrice.String())
		if err != nil {
			return nil, fmt.Errorf("decode unit_price: %w", err)
		}
		total, err := decimal.NewFromString(d.LineTotal.String())
		if err != nil {
			return nil, fmt.Errorf("decode line_total: %w", err)
		}
		inv.Details = append(inv.Details, &entity.InvoiceDetail{
			ID:          d.ID,
			InvoiceID:   doc.ID,
			Position:    i,
			Description: d.Description,
			Quantity:    qty,
			UnitPrice:   price,
			LineTotal:   total,
		})
	}
	return inv, nil
}

func toDecimal128(d decimal.Decimal) (primitive.Decimal128, error) {
	v, err := primitive.ParseDecimal128(d.String())
	if err != nil {
		return primitive.Decimal128{}, fmt.Errorf("encode decimal %s: %w", d, err)
	}
	return v, nil
}
