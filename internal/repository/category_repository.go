package repository

import (
	"context"
	"errors"
	"fmt"

	"catalogo-api/internal/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

var (
	ErrCategoryNotFound = errors.New("category not found")
)

// CategoryRepository defines the interface for category data access.
// Categories are plain store-direct documents: no orchestration happens on
// top of them.
type CategoryRepository interface {
	FindAll(ctx context.Context) ([]*domain.Categoria, error)
	FindByID(ctx context.Context, id string) (*domain.Categoria, error)
	Save(ctx context.Context, category *domain.Categoria) (*domain.Categoria, error)
}

type categoryRepository struct {
	col *mongo.Collection
}

// NewCategoryRepository creates a new instance of CategoryRepository.
func NewCategoryRepository(col *mongo.Collection) CategoryRepository {
	return &categoryRepository{col: col}
}

// FindAll retrieves all categories.
func (r *categoryRepository) FindAll(ctx context.Context) ([]*domain.Categoria, error) {
	cur, err := r.col.Find(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer cur.Close(ctx)

	categories := []*domain.Categoria{}
	for cur.Next(ctx) {
		category := &domain.Categoria{}
		if err := cur.Decode(category); err != nil {
			return nil, fmt.Errorf("failed to decode category: %w", err)
		}
		categories = append(categories, category)
	}

	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}
	return categories, nil
}

// FindByID retrieves a category by its identifier.
func (r *categoryRepository) FindByID(ctx context.Context, id string) (*domain.Categoria, error) {
	category := &domain.Categoria{}
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(category)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("failed to find category by ID: %w", err)
	}
	return category, nil
}

// Save inserts the category when new, otherwise replaces it.
func (r *categoryRepository) Save(ctx context.Context, category *domain.Categoria) (*domain.Categoria, error) {
	if category.ID == "" {
		category.ID = primitive.NewObjectID().Hex()
		if _, err := r.col.InsertOne(ctx, category); err != nil {
			return nil, fmt.Errorf("failed to insert category: %w", err)
		}
		return category, nil
	}

	if _, err := r.col.ReplaceOne(ctx, bson.M{"_id": category.ID}, category); err != nil {
		return nil, fmt.Errorf("failed to replace category: %w", err)
	}
	return category, nil
}
