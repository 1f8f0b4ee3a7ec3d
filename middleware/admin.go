package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

const AdminSecretHeader = "X-Admin-Secret"

// AdminSecret protege los endpoints de administración con un secreto compartido.
func AdminSecret(expected string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if expected == "" {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Configuración incompleta: ADMIN_SECRET_KEY no definido"})
			return
		}
		given := c.GetHeader(AdminSecretHeader)
		if subtle.ConstantTimeCompare([]byte(given), []byte(expected)) != 1 {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Acceso denegado"})
			return
		}
		c.Next()
	}
}
