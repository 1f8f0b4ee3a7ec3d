package handlers

import (
	"net/http"
	"time"

	"calmatevibes-api/dto"
	"calmatevibes-api/service"

	"github.com/gin-gonic/gin"
)

const categoryNotFound = "Categoría no encontrada"

type CategoryHandler struct {
	svc     service.CategoryService
	timeout time.Duration
}

func NewCategoryHandler(svc service.CategoryService, timeout time.Duration) *CategoryHandler {
	return &CategoryHandler{svc: svc, timeout: timeout}
}

func (h *CategoryHandler) List(c *gin.Context) {
	ctx, cancel := requestContext(c, h.timeout)
	defer cancel()

	list, err := h.svc.List(ctx, c.Query("includeInactive") == "true")
	if err != nil {
		respondError(c, err, categoryNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": list, "count": len(list)})
}

func (h *CategoryHandler) Get(c *gin.Context) {
	ctx, cancel := requestContext(c, h.timeout)
	defer cancel()

	resp, err := h.svc.Get(ctx, c.Param("name"))
	if err != nil {
		respondError(c, err, categoryNotFound)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *CategoryHandler) Create(c *gin.Context) {
	var req dto.CreateCategoryRequest
	if !bindAndValidate(c, &req) {
		return
	}
	ctx, cancel := requestContext(c, h.timeout)
	defer cancel()

	resp, err := h.svc.Create(ctx, req)
	if err != nil {
		respondError(c, err, categoryNotFound)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *CategoryHandler) Update(c *gin.Context) {
	var req dto.UpdateCategoryRequest
	if !bindAndValidate(c, &req) {
		return
	}
	ctx, cancel := requestContext(c, h.timeout)
	defer cancel()

	resp, err := h.svc.Update(ctx, c.Param("name"), req)
	if err != nil {
		respondError(c, err, categoryNotFound)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *CategoryHandler) Delete(c *gin.Context) {
	ctx, cancel := requestContext(c, h.timeout)
	defer cancel()

	if err := h.svc.Delete(ctx, c.Param("name")); err != nil {
		respondError(c, err, categoryNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Categoría desactivada correctamente"})
}
