package proxy

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"catalogo-api/internal/client"
	"catalogo-api/internal/domain"
	"catalogo-api/internal/middleware"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ProductsPath is the client-tier resource path.
const ProductsPath = "/api/client/products"

// ErrorEnvelope is the normalized body the client tier answers with when the
// downstream call came back not-found. Built fresh per failure.
type ErrorEnvelope struct {
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
	Status    int       `json:"status"`
}

// ProductHandler forwards product operations to a remote product API and
// normalizes its failures.
type ProductHandler struct {
	products client.ProductService
	logger   *zap.Logger
}

// NewProductHandler creates a new proxy ProductHandler
func NewProductHandler(products client.ProductService, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{
		products: products,
		logger:   logger,
	}
}

// RegisterRoutes registers all proxied product routes
func (h *ProductHandler) RegisterRoutes(r chi.Router) {
	r.Route(ProductsPath, func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/{id}", h.Get)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
		r.Post("/upload/{id}", h.Upload)
	})
}

// List forwards the listing as-is.
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.FindAll(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, products)
}

// Get forwards a detail lookup; a downstream 404 becomes the error envelope.
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	product, err := h.products.FindByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.logger.Info("Fetched product from backend", zap.String("nombre", product.Nombre))
	middleware.RespondWithJSON(w, http.StatusOK, product)
}

// Create forwards a creation, filling the creation timestamp when absent
// just as the server tier would. A downstream 400 is passed through with its
// original body, not wrapped in the envelope.
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var product domain.Product
	if err := json.NewDecoder(r.Body).Decode(&product); err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if product.CreateAt.IsZero() {
		product.CreateAt = time.Now()
	}

	saved, err := h.products.Create(r.Context(), &product)
	if err != nil {
		var statusErr *client.StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusBadRequest {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			w.Write(statusErr.Body)
			return
		}
		h.respondError(w, err)
		return
	}

	w.Header().Set("Location", ProductsPath+"/"+saved.ID)
	middleware.RespondWithJSON(w, http.StatusCreated, saved)
}

// Update forwards a whole-object replace. The Location is built from the
// path id of this request, not from the downstream body.
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var product domain.Product
	if err := json.NewDecoder(r.Body).Decode(&product); err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	updated, err := h.products.Update(r.Context(), &product, id)
	if err != nil {
		h.respondError(w, err)
		return
	}

	w.Header().Set("Location", ProductsPath+"/"+id)
	middleware.RespondWithJSON(w, http.StatusCreated, updated)
}

// Delete forwards a removal; success carries no body.
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.products.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Upload is a strictly sequential two-call operation: push the photo first,
// then forward a full update with the refreshed record. Either call's
// not-found failure yields the same envelope.
func (h *ProductHandler) Upload(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, `missing field "file"`)
		return
	}
	defer file.Close()

	uploaded, err := h.products.Upload(r.Context(), id, header.Filename, file)
	if err != nil {
		h.respondError(w, err)
		return
	}

	updated, err := h.products.Update(r.Context(), uploaded, id)
	if err != nil {
		h.respondError(w, err)
		return
	}

	w.Header().Set("Location", ProductsPath+"/"+updated.ID)
	middleware.RespondWithJSON(w, http.StatusCreated, updated)
}

// respondError is the single normalization step wrapping every downstream
// call: a carried 404 becomes the envelope, anything else is re-signaled to
// the outer error mapping and answered as a generic server error.
func (h *ProductHandler) respondError(w http.ResponseWriter, err error) {
	var statusErr *client.StatusError
	if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
		middleware.RespondWithJSON(w, http.StatusNotFound, ErrorEnvelope{
			Error:     "product does not exist: " + statusErr.Error(),
			Timestamp: time.Now(),
			Status:    statusErr.StatusCode,
		})
		return
	}

	h.logger.Error("Downstream call failed", zap.Error(err))
	middleware.RespondWithError(w, http.StatusInternalServerError, "internal server error")
}
