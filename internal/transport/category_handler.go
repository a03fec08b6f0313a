package transport

import (
	"encoding/json"
	"errors"
	"net/http"

	"catalogo-api/internal/domain"
	"catalogo-api/internal/middleware"
	"catalogo-api/internal/repository"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// CategoriesPath is the versioned resource path categories live under.
const CategoriesPath = "/api/v2/categories"

// CategoryHandler maps category endpoints one-to-one onto store calls.
type CategoryHandler struct {
	categories repository.CategoryRepository
	logger     *zap.Logger
}

// NewCategoryHandler creates a new CategoryHandler
func NewCategoryHandler(categories repository.CategoryRepository, logger *zap.Logger) *CategoryHandler {
	return &CategoryHandler{
		categories: categories,
		logger:     logger,
	}
}

// RegisterRoutes registers all category routes
func (h *CategoryHandler) RegisterRoutes(r chi.Router) {
	r.Route(CategoriesPath, func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/{id}", h.Get)
	})
}

func (h *CategoryHandler) List(w http.ResponseWriter, r *http.Request) {
	categories, err := h.categories.FindAll(r.Context())
	if err != nil {
		h.logger.Error("Failed to list categories", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to list categories")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, categories)
}

func (h *CategoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	category, err := h.categories.FindByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, repository.ErrCategoryNotFound) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		h.logger.Error("Failed to get category", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to get category")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, category)
}

func (h *CategoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var category domain.Categoria
	if err := json.NewDecoder(r.Body).Decode(&category); err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if category.Nombre == "" {
		middleware.RespondWithJSON(w, http.StatusBadRequest, []string{"nombre: is required"})
		return
	}

	saved, err := h.categories.Save(r.Context(), &category)
	if err != nil {
		h.logger.Error("Failed to create category", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to create category")
		return
	}

	w.Header().Set("Location", CategoriesPath+"/"+saved.ID)
	middleware.RespondWithJSON(w, http.StatusCreated, saved)
}
