package domain

import "time"

// Product is a catalog entry. The category is embedded as a copy taken at
// save time, not a reference: editing a category afterwards does not touch
// products that already embedded it.
type Product struct {
	ID        string    `json:"id" bson:"_id,omitempty"`
	Nombre    string    `json:"nombre" bson:"nombre" validate:"required"`
	Precio    float64   `json:"precio" bson:"precio" validate:"gte=0"`
	CreateAt  time.Time `json:"createAt" bson:"createAt"`
	Foto      string    `json:"foto,omitempty" bson:"foto,omitempty"`
	Categoria Categoria `json:"categoria" bson:"categoria"`
}

// Categoria is both a standalone document and the embedded copy inside a
// Product.
type Categoria struct {
	ID     string `json:"id" bson:"_id,omitempty"`
	Nombre string `json:"nombre" bson:"nombre" validate:"required"`
}
