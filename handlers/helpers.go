package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"calmatevibes-api/dto"
	"calmatevibes-api/middleware"
	"calmatevibes-api/models"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const defaultTimeout = 10 * time.Second

func requestContext(c *gin.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return context.WithTimeout(c.Request.Context(), timeout)
}

// bindAndValidate parsea el body y corre el validator. Si falla ya respondió 400.
func bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Datos inválidos", "code": models.CodeValidation})
		return false
	}
	return validate(c, req)
}

func bindQuery(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Parámetros inválidos", "code": models.CodeValidation})
		return false
	}
	return validate(c, req)
}

func validate(c *gin.Context, req interface{}) bool {
	if err := dto.Validate.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":  "Error de validación",
			"code":   models.CodeValidation,
			"fields": dto.FieldErrors(err),
		})
		return false
	}
	return true
}

func parseID(c *gin.Context) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID de producto inválido", "code": models.CodeValidation})
		return primitive.NilObjectID, false
	}
	return id, true
}

func statusFor(code string) int {
	switch code {
	case models.CodeNotFound:
		return http.StatusNotFound
	case models.CodeInvalidReference, models.CodeImmutableField, models.CodeValidation:
		return http.StatusBadRequest
	case models.CodeNameTaken, models.CodeReferencedByCombos, models.CodeCategoryInUse:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// respondError traduce los errores de dominio a su status y detalle.
// Cualquier otro error se loguea y se responde 500 genérico.
func respondError(c *gin.Context, err error, notFound string) {
	code := models.ErrorCode(err)
	status := statusFor(code)
	body := gin.H{"code": code}

	var (
		invalidRef *models.InvalidReferenceError
		immutable  *models.ImmutableFieldError
		referenced *models.ReferencedByCombosError
		validation *models.ValidationError
		inUse      *models.CategoryInUseError
	)
	switch {
	case code == models.CodeNotFound:
		body["error"] = notFound
	case errors.Is(err, models.ErrEmailTaken):
		body["error"] = "El email ya está registrado"
	case errors.Is(err, models.ErrNameTaken):
		body["error"] = "Ya existe un elemento activo con ese nombre"
	case errors.As(err, &invalidRef):
		body["error"] = "Referencia de combo inválida"
		body["field"] = invalidRef.Field
		body["reason"] = invalidRef.Reason
		if invalidRef.ID != "" {
			body["id"] = invalidRef.ID
		}
	case errors.As(err, &immutable):
		body["error"] = "El campo no puede modificarse"
		body["field"] = immutable.Field
	case errors.As(err, &referenced):
		body["error"] = "El producto forma parte de combos activos"
		body["combos"] = referenced.Combos
	case errors.As(err, &validation):
		body["error"] = "Error de validación"
		body["fields"] = validation.Fields
	case errors.As(err, &inUse):
		body["error"] = "La categoría tiene productos activos"
		body["activeProducts"] = inUse.ActiveProducts
	default:
		log.Error().
			Err(err).
			Str("request_id", c.GetString(middleware.RequestIDKey)).
			Str("path", c.FullPath()).
			Msg("unhandled error")
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Error interno del servidor"})
		return
	}
	c.AbortWithStatusJSON(status, body)
}
