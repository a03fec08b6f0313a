package proxy

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"catalogo-api/internal/client"
	"catalogo-api/internal/domain"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// newProxy wires the real downstream client against a fake backend, the same
// shape the proxy process runs with.
func newProxy(t *testing.T, backend http.Handler) (chi.Router, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	products := client.NewProductClient(srv.URL+"/api/v2/products", srv.Client(), zap.NewNop())
	router := chi.NewRouter()
	NewProductHandler(products, zap.NewNop()).RegisterRoutes(router)
	return router, srv
}

func TestGet_NotFoundIsNormalizedIntoEnvelope(t *testing.T) {
	router, _ := newProxy(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, ProductsPath+"/missing-id", nil))

	require.Equal(t, http.StatusNotFound, w.Code)

	var envelope ErrorEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Contains(t, envelope.Error, "product does not exist")
	assert.Contains(t, envelope.Error, "missing-id")
	assert.Equal(t, http.StatusNotFound, envelope.Status)
	assert.False(t, envelope.Timestamp.IsZero(), "envelope must carry a timestamp")
	assert.WithinDuration(t, time.Now(), envelope.Timestamp, time.Minute)
}

func TestGet_ForwardsDownstreamProduct(t *testing.T) {
	router, _ := newProxy(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v2/products/p1", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"p1","nombre":"Apple iPod","precio":46.89}`))
	}))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, ProductsPath+"/p1", nil))

	require.Equal(t, http.StatusOK, w.Code)

	var product domain.Product
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &product))
	assert.Equal(t, "Apple iPod", product.Nombre)
}

func TestCreate_FillsTimestampBeforeForwarding(t *testing.T) {
	var forwarded domain.Product
	router, _ := newProxy(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&forwarded))
		forwarded.ID = "generated-id"
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(forwarded)
	}))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, ProductsPath,
		strings.NewReader(`{"nombre":"Mesa comedor","precio":100,"categoria":{"nombre":"Muebles"}}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.False(t, forwarded.CreateAt.IsZero(), "timestamp must be filled before forwarding")
	assert.Equal(t, ProductsPath+"/generated-id", w.Header().Get("Location"))
}

func TestCreate_BadRequestBodyPassesThroughVerbatim(t *testing.T) {
	violations := `["nombre: is required","precio: must be greater than or equal to 0"]`
	router, _ := newProxy(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(violations))
	}))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, ProductsPath, strings.NewReader(`{"precio":-1}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, violations, w.Body.String(), "downstream violations must not be wrapped")
}

func TestUpdate_LocationUsesPathID(t *testing.T) {
	router, _ := newProxy(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/v2/products/p1", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"p1","nombre":"New"}`))
	}))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, ProductsPath+"/p1", strings.NewReader(`{"nombre":"New","precio":2}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, ProductsPath+"/p1", w.Header().Get("Location"))
}

func TestDelete_NotFoundIsNormalizedIntoEnvelope(t *testing.T) {
	router, _ := newProxy(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, ProductsPath+"/missing-id", nil))

	require.Equal(t, http.StatusNotFound, w.Code)

	var envelope ErrorEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Contains(t, envelope.Error, "product does not exist")
}

func TestDelete_Forwards(t *testing.T) {
	router, _ := newProxy(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, ProductsPath+"/p1", nil))

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Zero(t, w.Body.Len())
}

func TestUpload_PushesPhotoThenUpdates(t *testing.T) {
	var calls []string
	router, _ := newProxy(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.Method+" "+r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasPrefix(r.URL.Path, "/api/v2/products/upload/"):
			w.Write([]byte(`{"id":"p1","nombre":"Bianchi Bicicleta","foto":"token-bike.png"}`))
		default:
			var updated domain.Product
			require.NoError(t, json.NewDecoder(r.Body).Decode(&updated))
			assert.Equal(t, "token-bike.png", updated.Foto)
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(updated)
		}
	}))

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	part, err := form.CreateFormFile("file", "bike.png")
	require.NoError(t, err)
	part.Write([]byte("png-bytes"))
	require.NoError(t, form.Close())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, ProductsPath+"/upload/p1", &buf)
	req.Header.Set("Content-Type", form.FormDataContentType())
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	require.Equal(t, []string{
		"POST /api/v2/products/upload/p1",
		"PUT /api/v2/products/p1",
	}, calls, "photo push must strictly precede the update")
	assert.Equal(t, ProductsPath+"/p1", w.Header().Get("Location"))
}

func TestUpload_NotFoundOnPhotoPushShortCircuits(t *testing.T) {
	var calls int
	router, _ := newProxy(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusNotFound)
	}))

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	part, err := form.CreateFormFile("file", "bike.png")
	require.NoError(t, err)
	part.Write([]byte("png-bytes"))
	require.NoError(t, form.Close())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, ProductsPath+"/upload/missing-id", &buf)
	req.Header.Set("Content-Type", form.FormDataContentType())
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, 1, calls, "the update must not run after a failed photo push")

	var envelope ErrorEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Contains(t, envelope.Error, "product does not exist")
}
