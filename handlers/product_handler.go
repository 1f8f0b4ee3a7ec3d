package handlers

import (
	"net/http"
	"time"

	"calmatevibes-api/dto"
	"calmatevibes-api/service"

	"github.com/gin-gonic/gin"
)

const productNotFound = "Producto no encontrado"

type ProductHandler struct {
	svc     service.ProductService
	timeout time.Duration
}

func NewProductHandler(svc service.ProductService, timeout time.Duration) *ProductHandler {
	return &ProductHandler{svc: svc, timeout: timeout}
}

// List: GET /productos con filtros, orden, paginación y estadísticas
func (h *ProductHandler) List(c *gin.Context) {
	var q dto.ProductListQuery
	if !bindQuery(c, &q) {
		return
	}
	ctx, cancel := requestContext(c, h.timeout)
	defer cancel()

	resp, err := h.svc.List(ctx, q)
	if err != nil {
		respondError(c, err, productNotFound)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ProductHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	ctx, cancel := requestContext(c, h.timeout)
	defer cancel()

	resp, err := h.svc.Get(ctx, id)
	if err != nil {
		respondError(c, err, productNotFound)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ProductHandler) Create(c *gin.Context) {
	var req dto.CreateProductRequest
	if !bindAndValidate(c, &req) {
		return
	}
	ctx, cancel := requestContext(c, h.timeout)
	defer cancel()

	resp, err := h.svc.Create(ctx, req)
	if err != nil {
		respondError(c, err, productNotFound)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *ProductHandler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req dto.UpdateProductRequest
	if !bindAndValidate(c, &req) {
		return
	}
	ctx, cancel := requestContext(c, h.timeout)
	defer cancel()

	resp, err := h.svc.Update(ctx, id, req)
	if err != nil {
		respondError(c, err, productNotFound)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Delete es un borrado lógico. Si el producto está en combos activos responde 409.
func (h *ProductHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	ctx, cancel := requestContext(c, h.timeout)
	defer cancel()

	if err := h.svc.Delete(ctx, id); err != nil {
		respondError(c, err, productNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Producto eliminado correctamente"})
}

func (h *ProductHandler) Restore(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	ctx, cancel := requestContext(c, h.timeout)
	defer cancel()

	resp, err := h.svc.Restore(ctx, id)
	if err != nil {
		respondError(c, err, productNotFound)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ProductHandler) AdjustStock(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req dto.AdjustStockRequest
	if !bindAndValidate(c, &req) {
		return
	}
	ctx, cancel := requestContext(c, h.timeout)
	defer cancel()

	resp, err := h.svc.AdjustStock(ctx, id, req)
	if err != nil {
		respondError(c, err, productNotFound)
		return
	}
	c.JSON(http.StatusOK, resp)
}

type movementsQuery struct {
	Limit int `form:"limit" validate:"min=0,max=200"`
}

func (h *ProductHandler) Movements(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var q movementsQuery
	if !bindQuery(c, &q) {
		return
	}
	ctx, cancel := requestContext(c, h.timeout)
	defer cancel()

	movements, err := h.svc.Movements(ctx, id, q.Limit)
	if err != nil {
		respondError(c, err, productNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": movements, "count": len(movements)})
}
