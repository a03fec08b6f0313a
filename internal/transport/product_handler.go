package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"catalogo-api/internal/domain"
	"catalogo-api/internal/middleware"
	"catalogo-api/internal/repository"
	"catalogo-api/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ProductsPath is the versioned resource path products live under. Location
// references in create/update responses are built from it.
const ProductsPath = "/api/v2/products"

const maxMultipartMemory = 32 << 20

// MissingFieldError reports a multipart form field that is absent or not of
// the expected kind.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing field %q", e.Field)
}

// ProductHandler handles HTTP requests for product operations
type ProductHandler struct {
	products service.ProductService
	logger   *zap.Logger
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(products service.ProductService, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{
		products: products,
		logger:   logger,
	}
}

// RegisterRoutes registers all product routes
func (h *ProductHandler) RegisterRoutes(r chi.Router) {
	r.Route(ProductsPath, func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/{id}", h.Get)
		r.Put("/{id}", h.Replace)
		r.Delete("/{id}", h.Delete)
		r.Post("/upload/{id}", h.Upload)
	})
}

// List streams the product sequence as a JSON array, one element per store
// document, flushing as it goes. The 200 is committed before the first
// element, so a mid-stream store failure can only truncate the array.
// A nombre query parameter narrows the result to a single name lookup.
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	if nombre := r.URL.Query().Get("nombre"); nombre != "" {
		h.getByNombre(w, r, nombre)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	w.Write([]byte("["))
	first := true

	for product, err := range h.products.FindAll(r.Context()) {
		if err != nil {
			h.logger.Error("Product stream failed", zap.Error(err))
			break
		}
		if !first {
			w.Write([]byte(","))
		}
		first = false

		element, err := json.Marshal(product)
		if err != nil {
			h.logger.Error("Failed to encode product", zap.Error(err))
			break
		}
		w.Write(element)
		if flusher != nil {
			flusher.Flush()
		}
	}

	w.Write([]byte("]"))
}

func (h *ProductHandler) getByNombre(w http.ResponseWriter, r *http.Request, nombre string) {
	product, err := h.products.FindByNombre(r.Context(), nombre)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		h.logger.Error("Failed to find product by nombre", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to get product")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, product)
}

// Get handles product detail lookup
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	product, err := h.products.FindByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		h.logger.Error("Failed to get product", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to get product")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, product)
}

// Create handles product creation. A multipart body is treated as the
// create-with-photo form, anything else as a JSON payload.
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		h.createWithPhoto(w, r)
		return
	}

	var product domain.Product
	if err := json.NewDecoder(r.Body).Decode(&product); err != nil {
		h.logger.Debug("Create decode failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	saved, err := h.products.Create(r.Context(), &product)
	if err != nil {
		var validationErr *service.ValidationError
		if errors.As(err, &validationErr) {
			middleware.RespondWithJSON(w, http.StatusBadRequest, validationErr.Violations)
			return
		}
		h.logger.Error("Failed to create product", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to create product")
		return
	}

	h.logger.Info("Product created", zap.String("product_id", saved.ID))
	h.respondCreated(w, saved)
}

// Replace handles whole-object replacement. The store fetch and the body
// decode are started together; the three mutable fields are overwritten once
// both are in.
func (h *ProductHandler) Replace(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	saved, err := h.products.ReplaceProduct(r.Context(), id, func() (*domain.Product, error) {
		var incoming domain.Product
		if err := json.NewDecoder(r.Body).Decode(&incoming); err != nil {
			return nil, fmt.Errorf("invalid request body: %w", err)
		}
		return &incoming, nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		h.logger.Error("Failed to replace product", zap.String("product_id", id), zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to update product")
		return
	}

	h.respondCreated(w, saved)
}

// Delete handles product removal
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.products.Delete(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		h.logger.Error("Failed to delete product", zap.String("product_id", id), zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to delete product")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Upload attaches a photo to an existing product
func (h *ProductHandler) Upload(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	file, header, err := filePart(r)
	if err != nil {
		h.logger.Debug("Upload form invalid", zap.Error(err))
		middleware.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer file.Close()

	photo := service.PhotoUpload{Filename: header.Filename, Content: file}
	saved, err := h.products.AttachPhoto(r.Context(), id, photo)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		h.logger.Error("Failed to attach photo", zap.String("product_id", id), zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to attach photo")
		return
	}

	h.respondCreated(w, saved)
}

func (h *ProductHandler) createWithPhoto(w http.ResponseWriter, r *http.Request) {
	file, header, err := filePart(r)
	if err != nil {
		h.logger.Debug("Multipart create form invalid", zap.Error(err))
		middleware.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer file.Close()

	product, err := productFromForm(r)
	if err != nil {
		h.logger.Debug("Multipart create fields invalid", zap.Error(err))
		middleware.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	photo := service.PhotoUpload{Filename: header.Filename, Content: file}
	saved, err := h.products.CreateWithPhoto(r.Context(), product, photo)
	if err != nil {
		h.logger.Error("Failed to create product with photo", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to create product")
		return
	}

	h.logger.Info("Product created with photo",
		zap.String("product_id", saved.ID),
		zap.String("foto", saved.Foto),
	)
	h.respondCreated(w, saved)
}

// respondCreated answers 201 with a Location built from the post-save
// identifier, which is the authoritative one once the store has assigned it.
func (h *ProductHandler) respondCreated(w http.ResponseWriter, product *domain.Product) {
	w.Header().Set("Location", ProductsPath+"/"+product.ID)
	middleware.RespondWithJSON(w, http.StatusCreated, product)
}

// filePart extracts the named "file" part from a multipart request. A
// missing or malformed part is a MissingFieldError, never a blind cast.
func filePart(r *http.Request) (multipart.File, *multipart.FileHeader, error) {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		return nil, nil, fmt.Errorf("invalid multipart body: %w", err)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, nil, &MissingFieldError{Field: "file"}
	}
	return file, header, nil
}

// productFromForm builds a product from the scalar multipart fields.
func productFromForm(r *http.Request) (*domain.Product, error) {
	nombre, err := formField(r, "nombre")
	if err != nil {
		return nil, err
	}
	precioRaw, err := formField(r, "precio")
	if err != nil {
		return nil, err
	}
	precio, err := strconv.ParseFloat(precioRaw, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid field %q: %w", "precio", err)
	}
	categoriaID, err := formField(r, "categoria.id")
	if err != nil {
		return nil, err
	}
	categoriaNombre, err := formField(r, "categoria.nombre")
	if err != nil {
		return nil, err
	}

	return &domain.Product{
		Nombre: nombre,
		Precio: precio,
		Categoria: domain.Categoria{
			ID:     categoriaID,
			Nombre: categoriaNombre,
		},
	}, nil
}

func formField(r *http.Request, name string) (string, error) {
	if r.MultipartForm == nil {
		return "", &MissingFieldError{Field: name}
	}
	values, ok := r.MultipartForm.Value[name]
	if !ok || len(values) == 0 {
		return "", &MissingFieldError{Field: name}
	}
	return values[0], nil
}
