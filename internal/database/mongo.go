package database

import (
	"context"
	"fmt"
	"time"

	"catalogo-api/internal/config"
	"catalogo-api/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const (
	ProductsCollection   = "productos"
	CategoriesCollection = "categorias"
)

// Connect opens a Mongo client and verifies the connection with a ping.
func Connect(ctx context.Context, cfg config.MongoConfig) (*mongo.Database, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	return client.Database(cfg.Database), nil
}

// Seed drops and repopulates the demo catalog. Only meant for local
// environments; gated by MONGO_SEED.
func Seed(ctx context.Context, db *mongo.Database, logger *zap.Logger) error {
	products := db.Collection(ProductsCollection)
	categories := db.Collection(CategoriesCollection)

	if err := products.Drop(ctx); err != nil {
		return fmt.Errorf("failed to drop products collection: %w", err)
	}
	if err := categories.Drop(ctx); err != nil {
		return fmt.Errorf("failed to drop categories collection: %w", err)
	}

	seedCategories := []domain.Categoria{
		{Nombre: "Electrónico"},
		{Nombre: "Deporte"},
		{Nombre: "Computación"},
		{Nombre: "Muebles"},
	}

	// Identifiers are stored as hex strings, matching what the repositories
	// assign on first persist.
	byName := make(map[string]domain.Categoria, len(seedCategories))
	for i := range seedCategories {
		seedCategories[i].ID = primitive.NewObjectID().Hex()
		if _, err := categories.InsertOne(ctx, seedCategories[i]); err != nil {
			return fmt.Errorf("failed to seed category %q: %w", seedCategories[i].Nombre, err)
		}
		byName[seedCategories[i].Nombre] = seedCategories[i]
	}

	seedProducts := []domain.Product{
		{Nombre: "TV Panasonic Pantalla LCD", Precio: 456.89, Categoria: byName["Electrónico"]},
		{Nombre: "Sony Camara HD Digital", Precio: 177.89, Categoria: byName["Electrónico"]},
		{Nombre: "Apple iPod", Precio: 46.89, Categoria: byName["Electrónico"]},
		{Nombre: "Sony Notebook", Precio: 846.89, Categoria: byName["Computación"]},
		{Nombre: "Hewlett Packard Multifuncional", Precio: 200.89, Categoria: byName["Computación"]},
		{Nombre: "Bianchi Bicicleta", Precio: 70.89, Categoria: byName["Deporte"]},
		{Nombre: "HP Notebook Omen 17", Precio: 2500.89, Categoria: byName["Computación"]},
		{Nombre: "Mica Cómoda 5 Cajones", Precio: 150.89, Categoria: byName["Muebles"]},
		{Nombre: "TV Sony Bravia OLED 4K Ultra HD", Precio: 2255.89, Categoria: byName["Electrónico"]},
	}

	for _, p := range seedProducts {
		p.ID = primitive.NewObjectID().Hex()
		p.CreateAt = time.Now()
		if _, err := products.InsertOne(ctx, p); err != nil {
			return fmt.Errorf("failed to seed product %q: %w", p.Nombre, err)
		}
	}

	logger.Info("Seeded demo catalog",
		zap.Int("categories", len(seedCategories)),
		zap.Int("products", len(seedProducts)),
	)
	return nil
}
