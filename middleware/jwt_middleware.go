package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	UserIDKey       = "userId"
	TokenCookieName = "token"
)

func AuthMiddleware(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		var tokenString string

		// 1. Buscar en el header "Authorization" (formato "Bearer <token>")
		authHeader := c.GetHeader("Authorization")
		if authHeader != "" {
			parts := strings.Split(authHeader, " ")
			if len(parts) == 2 && parts[0] == "Bearer" {
				tokenString = parts[1]
			}
		}
		// 2. Si no hay header, buscar en la cookie
		if tokenString == "" {
			tokenString, _ = c.Cookie(TokenCookieName)
		}

		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "No autorizado: token ausente"})
			return
		}

		// Parsear y validar el token, solo HMAC
		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return secret, nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Token inválido o expirado"})
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Claims inválidos"})
			return
		}

		userIDStr, _ := claims["userId"].(string)
		if userIDStr == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "userId inválido"})
			return
		}
		if _, err := primitive.ObjectIDFromHex(userIDStr); err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Formato de userId inválido"})
			return
		}

		c.Set(UserIDKey, userIDStr)
		c.Next()
	}
}

// SetAuthCookie escribe la cookie de sesión. En producción el frontend vive en
// otro dominio: secure=true también pasa SameSite a None.
func SetAuthCookie(c *gin.Context, tokenString string, duration time.Duration, secure bool) {
	sameSite := http.SameSiteLaxMode
	if secure {
		sameSite = http.SameSiteNoneMode
	}
	c.SetSameSite(sameSite)
	// Dejar domain vacío: el navegador la asocia al host de la API.
	// La firma es: name, value, maxAge, path, domain, secure, httpOnly
	c.SetCookie(TokenCookieName, tokenString, int(duration.Seconds()), "/", "", secure, true)
}

func ClearAuthCookie(c *gin.Context, secure bool) {
	SetAuthCookie(c, "", -time.Second, secure)
}
