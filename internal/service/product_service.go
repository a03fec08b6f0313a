package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"reflect"
	"strings"
	"time"

	"catalogo-api/internal/domain"
	"catalogo-api/internal/repository"
	"catalogo-api/internal/storage"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"
)

// DecodeFunc produces the incoming product from the request body. It is a
// function so the orchestrator can decide when (and concurrently with what)
// the decode actually runs.
type DecodeFunc func() (*domain.Product, error)

// PhotoUpload carries an extracted multipart file part.
type PhotoUpload struct {
	Filename string
	Content  io.Reader
}

// ValidationError reports payload violations as ordered "field: message"
// strings, one per violation in discovery order.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Violations, "; ")
}

// ProductService composes store and photo-store calls into single logical
// request outcomes.
type ProductService interface {
	FindAll(ctx context.Context) iter.Seq2[*domain.Product, error]
	FindByID(ctx context.Context, id string) (*domain.Product, error)
	FindByNombre(ctx context.Context, nombre string) (*domain.Product, error)
	Create(ctx context.Context, product *domain.Product) (*domain.Product, error)
	ReplaceProduct(ctx context.Context, id string, decode DecodeFunc) (*domain.Product, error)
	MergeProduct(ctx context.Context, id string, decode DecodeFunc) (*domain.Product, error)
	Delete(ctx context.Context, id string) error
	CreateWithPhoto(ctx context.Context, product *domain.Product, photo PhotoUpload) (*domain.Product, error)
	AttachPhoto(ctx context.Context, id string, photo PhotoUpload) (*domain.Product, error)
}

type productService struct {
	products repository.ProductRepository
	photos   storage.PhotoStore
	validate *validator.Validate
}

// NewProductService creates a ProductService. All collaborators, the
// validator included, are injected here rather than looked up globally.
func NewProductService(
	products repository.ProductRepository,
	photos storage.PhotoStore,
	validate *validator.Validate,
) ProductService {
	return &productService{
		products: products,
		photos:   photos,
		validate: validate,
	}
}

// NewValidator returns a validator configured to report JSON field names in
// violation messages.
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// FindAll streams products straight from the store.
func (s *productService) FindAll(ctx context.Context) iter.Seq2[*domain.Product, error] {
	return s.products.FindAll(ctx)
}

// FindByID looks a product up by identifier.
func (s *productService) FindByID(ctx context.Context, id string) (*domain.Product, error) {
	return s.products.FindByID(ctx, id)
}

// FindByNombre looks a product up by its exact name. Seeded identifiers
// change on every boot, so fixtures are located this way.
func (s *productService) FindByNombre(ctx context.Context, nombre string) (*domain.Product, error) {
	return s.products.FindByNombre(ctx, nombre)
}

// Create validates the payload, fills in the creation timestamp when absent
// and persists. Nothing is written when validation fails.
func (s *productService) Create(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	if err := s.validate.Struct(product); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			violations := make([]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				violations = append(violations, fmt.Sprintf("%s: %s", fe.Field(), violationMessage(fe)))
			}
			return nil, &ValidationError{Violations: violations}
		}
		return nil, fmt.Errorf("failed to validate product: %w", err)
	}

	if product.CreateAt.IsZero() {
		product.CreateAt = time.Now()
	}
	return s.products.Save(ctx, product)
}

// ReplaceProduct fetches the stored product and decodes the incoming body
// concurrently (both sources are started before either completes), then
// overwrites only the mutable fields and persists. Identifier, creation
// timestamp and photo reference are never touched.
func (s *productService) ReplaceProduct(ctx context.Context, id string, decode DecodeFunc) (*domain.Product, error) {
	var existing, incoming *domain.Product

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := s.products.FindByID(gctx, id)
		existing = p
		return err
	})
	g.Go(func() error {
		p, err := decode()
		incoming = p
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	overwriteMutableFields(existing, incoming)
	return s.products.Save(ctx, existing)
}

// MergeProduct is the dependent-chain twin of ReplaceProduct: the body is
// decoded only once the store fetch has resolved, so the two latencies add
// up instead of overlapping. Functionally equivalent; kept for the
// sequential shape.
func (s *productService) MergeProduct(ctx context.Context, id string, decode DecodeFunc) (*domain.Product, error) {
	existing, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	incoming, err := decode()
	if err != nil {
		return nil, err
	}

	overwriteMutableFields(existing, incoming)
	return s.products.Save(ctx, existing)
}

func overwriteMutableFields(existing, incoming *domain.Product) {
	existing.Nombre = incoming.Nombre
	existing.Precio = incoming.Precio
	existing.Categoria = incoming.Categoria
}

// Delete removes the product after confirming it exists.
func (s *productService) Delete(ctx context.Context, id string) error {
	product, err := s.products.FindByID(ctx, id)
	if err != nil {
		return err
	}
	return s.products.Delete(ctx, product)
}

// CreateWithPhoto writes the photo content first and persists the record
// only after the write succeeded, so no record ever references a file that
// was never stored. If the persist fails afterwards the written file is
// removed again.
func (s *productService) CreateWithPhoto(ctx context.Context, product *domain.Product, photo PhotoUpload) (*domain.Product, error) {
	product.Foto = storage.PhotoName(photo.Filename)
	product.CreateAt = time.Now()

	if err := s.photos.Save(ctx, product.Foto, photo.Content); err != nil {
		return nil, fmt.Errorf("failed to store photo: %w", err)
	}

	saved, err := s.products.Save(ctx, product)
	if err != nil {
		// Best effort: don't leave an orphaned file behind.
		_ = s.photos.Remove(ctx, product.Foto)
		return nil, err
	}
	return saved, nil
}

// AttachPhoto stores a new photo for an existing product and persists the
// refreshed reference, with the same write-then-save ordering and
// compensation as CreateWithPhoto.
func (s *productService) AttachPhoto(ctx context.Context, id string, photo PhotoUpload) (*domain.Product, error) {
	product, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	product.Foto = storage.PhotoName(photo.Filename)
	if err := s.photos.Save(ctx, product.Foto, photo.Content); err != nil {
		return nil, fmt.Errorf("failed to store photo: %w", err)
	}

	saved, err := s.products.Save(ctx, product)
	if err != nil {
		_ = s.photos.Remove(ctx, product.Foto)
		return nil, err
	}
	return saved, nil
}

func violationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	case "lte":
		return "must be less than or equal to " + fe.Param()
	case "min":
		return "is too short"
	case "max":
		return "is too long"
	default:
		return "is invalid"
	}
}
