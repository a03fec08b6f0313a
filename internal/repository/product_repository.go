package repository

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"catalogo-api/internal/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

var (
	ErrProductNotFound = errors.New("product not found")
)

// ProductRepository defines the interface for product data access.
// FindAll returns a lazy sequence: documents are decoded one at a time as
// the caller consumes them, and the sequence is not restartable.
type ProductRepository interface {
	FindAll(ctx context.Context) iter.Seq2[*domain.Product, error]
	FindByID(ctx context.Context, id string) (*domain.Product, error)
	FindByNombre(ctx context.Context, nombre string) (*domain.Product, error)
	Save(ctx context.Context, product *domain.Product) (*domain.Product, error)
	Delete(ctx context.Context, product *domain.Product) error
}

type productRepository struct {
	col *mongo.Collection
}

// NewProductRepository creates a new instance of ProductRepository backed by
// the given Mongo collection.
func NewProductRepository(col *mongo.Collection) ProductRepository {
	return &productRepository{col: col}
}

// FindAll streams every product in store-native order.
func (r *productRepository) FindAll(ctx context.Context) iter.Seq2[*domain.Product, error] {
	return func(yield func(*domain.Product, error) bool) {
		cur, err := r.col.Find(ctx, bson.D{})
		if err != nil {
			yield(nil, fmt.Errorf("failed to list products: %w", err))
			return
		}
		defer cur.Close(ctx)

		for cur.Next(ctx) {
			product := &domain.Product{}
			if err := cur.Decode(product); err != nil {
				yield(nil, fmt.Errorf("failed to decode product: %w", err))
				return
			}
			if !yield(product, nil) {
				return
			}
		}

		if err := cur.Err(); err != nil {
			yield(nil, fmt.Errorf("error iterating products: %w", err))
		}
	}
}

// FindByID retrieves a product by its identifier.
func (r *productRepository) FindByID(ctx context.Context, id string) (*domain.Product, error) {
	product := &domain.Product{}
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(product)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product by ID: %w", err)
	}
	return product, nil
}

// FindByNombre retrieves the first product with the given name. Seeded ids
// change on every restart, so tests locate fixtures by name.
func (r *productRepository) FindByNombre(ctx context.Context, nombre string) (*domain.Product, error) {
	product := &domain.Product{}
	err := r.col.FindOne(ctx, bson.M{"nombre": nombre}).Decode(product)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product by nombre: %w", err)
	}
	return product, nil
}

// Save inserts the product when it has no identifier yet, otherwise replaces
// the stored document. The identifier is assigned exactly once, here, and
// never changes afterwards.
func (r *productRepository) Save(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	if product.ID == "" {
		product.ID = primitive.NewObjectID().Hex()
		if _, err := r.col.InsertOne(ctx, product); err != nil {
			return nil, fmt.Errorf("failed to insert product: %w", err)
		}
		return product, nil
	}

	if _, err := r.col.ReplaceOne(ctx, bson.M{"_id": product.ID}, product); err != nil {
		return nil, fmt.Errorf("failed to replace product: %w", err)
	}
	return product, nil
}

// Delete removes the product's document.
func (r *productRepository) Delete(ctx context.Context, product *domain.Product) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": product.ID})
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrProductNotFound
	}
	return nil
}
