package router_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"calmatevibes-api/combo"
	"calmatevibes-api/config"
	"calmatevibes-api/handlers"
	"calmatevibes-api/middleware"
	"calmatevibes-api/repository"
	"calmatevibes-api/router"
	"calmatevibes-api/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type api struct {
	t      *testing.T
	engine *gin.Engine
	token  string
}

func newAPI(t *testing.T, checks map[string]handlers.Check) *api {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Env:                "test",
		JWTSecret:          "router-secret",
		AdminSecretKey:     "admin-secret",
		AllowedOrigins:     "http://localhost:4200",
		RateLimitPerMinute: 1000,
		RequestTimeout:     5 * time.Second,
	}
	stores := repository.NewMemoryStores()
	engine := combo.NewEngine(stores.Products)
	categories := service.NewCategoryService(stores.Categories, stores.Products, engine)
	require.NoError(t, categories.Seed(context.Background()))

	return &api{
		t: t,
		engine: router.New(router.Deps{
			Config:     cfg,
			Products:   service.NewProductService(stores.Products, stores.Movements, engine),
			Categories: categories,
			Auth:       service.NewAuthService(stores.Users, []byte(cfg.JWTSecret)),
			Limiter:    middleware.NewMemoryLimiter(cfg.RateLimitPerMinute, time.Minute),
			Checks:     checks,
		}),
	}
}

func (a *api) do(method, path string, body any, headers ...string) (int, map[string]any) {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)

	out := map[string]any{}
	if w.Body.Len() > 0 {
		require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	}
	return w.Code, out
}

func (a *api) login() {
	a.t.Helper()
	status, _ := a.do(http.MethodPost, "/api/admin/users", map[string]any{
		"email": "admin@calmatevibes.com", "password": "supersecreta", "username": "admin",
	}, middleware.AdminSecretHeader, "admin-secret")
	require.Equal(a.t, http.StatusCreated, status)

	status, body := a.do(http.MethodPost, "/api/auth/login", map[string]any{
		"email": "admin@calmatevibes.com", "password": "supersecreta",
	})
	require.Equal(a.t, http.StatusOK, status)
	a.token = body["token"].(string)
}

func (a *api) create(body map[string]any) string {
	a.t.Helper()
	status, resp := a.do(http.MethodPost, "/api/productos", body)
	require.Equal(a.t, http.StatusCreated, status, resp)
	return resp["id"].(string)
}

func mateBody(name string, stock int) map[string]any {
	return map[string]any{
		"name": name, "category": "mates", "stock": stock, "purchasePrice": 9000, "salePrice": 15000,
		"mate": map[string]any{"shape": "Imperial", "gourd": "Calabaza", "topWidth": "Ancho", "bottomWidth": "Medio"},
	}
}

func bombillaBody(name string, stock int) map[string]any {
	return map[string]any{
		"name": name, "category": "bombillas", "stock": stock, "purchasePrice": 4000, "salePrice": 7000,
		"bombilla": map[string]any{"shape": "Recta", "material": "Alpaca", "size": "Larga"},
	}
}

func comboBody(name, mateID, bombillaID string) map[string]any {
	return map[string]any{
		"name": name, "category": "combos", "salePrice": 20000,
		"combo": map[string]any{"mateId": mateID, "bombillaId": bombillaID},
	}
}

func TestAuthFlow(t *testing.T) {
	a := newAPI(t, nil)

	status, _ := a.do(http.MethodPost, "/api/productos", mateBody("Mate", 1))
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = a.do(http.MethodPost, "/api/admin/users", map[string]any{"email": "x@y.com"}, middleware.AdminSecretHeader, "wrong")
	assert.Equal(t, http.StatusForbidden, status)

	a.login()

	status, body := a.do(http.MethodGet, "/api/auth/me", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "admin@calmatevibes.com", body["user"].(map[string]any)["email"])

	status, body = a.do(http.MethodPost, "/api/admin/users", map[string]any{
		"email": "admin@calmatevibes.com", "password": "otraclave1", "username": "otro",
	}, middleware.AdminSecretHeader, "admin-secret")
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "El email ya está registrado", body["error"])

	a.token = ""
	status, body = a.do(http.MethodPost, "/api/auth/login", map[string]any{
		"email": "admin@calmatevibes.com", "password": "incorrecta",
	})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Credenciales inválidas", body["error"])
}

func TestProductEndpoints(t *testing.T) {
	a := newAPI(t, nil)
	a.login()

	mateID := a.create(mateBody("Mate Imperial", 5))
	bombillaID := a.create(bombillaBody("Bombilla Recta", 3))
	comboID := a.create(comboBody("Combo Imperial", mateID, bombillaID))

	status, body := a.do(http.MethodGet, "/api/productos/"+comboID, nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 3, body["stock"])
	assert.Equal(t, true, body["stockResolved"])
	assert.Equal(t, "Mate Imperial", body["combo"].(map[string]any)["mate"].(map[string]any)["name"])

	t.Run("status mapping", func(t *testing.T) {
		status, _ := a.do(http.MethodGet, "/api/productos/not-an-id", nil)
		assert.Equal(t, http.StatusBadRequest, status)

		status, body := a.do(http.MethodGet, "/api/productos/"+"0123456789abcdef01234567", nil)
		assert.Equal(t, http.StatusNotFound, status)
		assert.Equal(t, "not_found", body["code"])

		status, body = a.do(http.MethodPost, "/api/productos", comboBody("Combo Roto", bombillaID, bombillaID))
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, "invalid_reference", body["code"])
		assert.Equal(t, "mateId", body["field"])
		assert.Equal(t, "wrong_category", body["reason"])

		status, body = a.do(http.MethodPost, "/api/productos", mateBody("Mate Imperial", 1))
		assert.Equal(t, http.StatusConflict, status)
		assert.Equal(t, "name_taken", body["code"])

		noPrice := mateBody("Mate Sin Precio", 1)
		delete(noPrice, "salePrice")
		status, body = a.do(http.MethodPost, "/api/productos", noPrice)
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, "required", body["fields"].(map[string]any)["salePrice"])

		status, body = a.do(http.MethodPut, "/api/productos/"+comboID, map[string]any{"category": "mates"})
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, "immutable_field", body["code"])
		assert.Equal(t, "category", body["field"])

		status, body = a.do(http.MethodPatch, "/api/productos/"+comboID+"/stock", map[string]any{"operation": "set", "quantity": 9})
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, "immutable_field", body["code"])
		assert.Equal(t, "stock", body["field"])
	})

	t.Run("deleting a component of an active combo", func(t *testing.T) {
		status, body := a.do(http.MethodDelete, "/api/productos/"+bombillaID, nil)
		assert.Equal(t, http.StatusConflict, status)
		assert.Equal(t, "referenced_by_combos", body["code"])
		combos := body["combos"].([]any)
		require.Len(t, combos, 1)
		assert.Equal(t, "Combo Imperial", combos[0].(map[string]any)["name"])
	})

	t.Run("stock adjustment cascades", func(t *testing.T) {
		status, body := a.do(http.MethodPatch, "/api/productos/"+bombillaID+"/stock", map[string]any{"operation": "set", "quantity": 1, "reason": "conteo"})
		require.Equal(t, http.StatusOK, status)
		assert.EqualValues(t, 1, body["product"].(map[string]any)["stock"])
		assert.Len(t, body["cascaded"].([]any), 1)

		status, body = a.do(http.MethodGet, "/api/productos/"+comboID, nil)
		require.Equal(t, http.StatusOK, status)
		assert.EqualValues(t, 1, body["stock"])

		status, body = a.do(http.MethodGet, "/api/productos/"+bombillaID+"/movimientos?limit=1", nil)
		require.Equal(t, http.StatusOK, status)
		assert.EqualValues(t, 1, body["count"])
	})

	t.Run("list", func(t *testing.T) {
		status, body := a.do(http.MethodGet, "/api/productos?sort=name_asc&limit=2", nil)
		require.Equal(t, http.StatusOK, status)
		assert.EqualValues(t, 2, body["count"])
		pagination := body["pagination"].(map[string]any)
		assert.EqualValues(t, 3, pagination["total"])
		assert.EqualValues(t, 2, pagination["pages"])
		assert.Equal(t, true, pagination["hasNextPage"])
		assert.EqualValues(t, 3, body["stats"].(map[string]any)["totalProducts"])

		status, _ = a.do(http.MethodGet, "/api/productos?sort=random", nil)
		assert.Equal(t, http.StatusBadRequest, status)
	})

	t.Run("delete and restore", func(t *testing.T) {
		status, _ := a.do(http.MethodDelete, "/api/productos/"+comboID, nil)
		require.Equal(t, http.StatusOK, status)
		status, _ = a.do(http.MethodDelete, "/api/productos/"+bombillaID, nil)
		require.Equal(t, http.StatusOK, status)

		status, body := a.do(http.MethodPatch, "/api/productos/"+comboID+"/restaurar", nil)
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, "inactive", body["reason"])

		status, _ = a.do(http.MethodPatch, "/api/productos/"+bombillaID+"/restaurar", nil)
		require.Equal(t, http.StatusOK, status)
		status, body = a.do(http.MethodPatch, "/api/productos/"+comboID+"/restaurar", nil)
		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, true, body["active"])
	})
}

func TestCategoryEndpoints(t *testing.T) {
	a := newAPI(t, nil)

	status, body := a.do(http.MethodGet, "/api/categorias", nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 3, body["count"])

	status, _ = a.do(http.MethodGet, "/api/categorias/termos", nil)
	assert.Equal(t, http.StatusNotFound, status)

	a.login()
	a.create(mateBody("Mate Torpedo", 2))

	status, body = a.do(http.MethodGet, "/api/categorias/mate", nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, body["count"])

	status, body = a.do(http.MethodDelete, "/api/categorias/mates", nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "category_in_use", body["code"])
	assert.EqualValues(t, 1, body["activeProducts"])

	status, body = a.do(http.MethodPost, "/api/categorias", map[string]any{"name": "termos"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "category", body["fields"].(map[string]any)["name"])
}

func TestHealth(t *testing.T) {
	a := newAPI(t, map[string]handlers.Check{
		"db": func(context.Context) error { return nil },
	})
	status, body := a.do(http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "connected", body["db"])

	a = newAPI(t, map[string]handlers.Check{
		"db":    func(context.Context) error { return nil },
		"redis": func(context.Context) error { return errors.New("connection refused") },
	})
	status, body = a.do(http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "error", body["redis"])
	assert.Equal(t, false, body["ok"])
}
