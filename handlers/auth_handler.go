package handlers

import (
	"errors"
	"net/http"
	"time"

	"calmatevibes-api/dto"
	"calmatevibes-api/middleware"
	"calmatevibes-api/service"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	svc     service.AuthService
	secure  bool
	timeout time.Duration
}

// secure marca la cookie como Secure y SameSite=None (frontend en otro dominio)
func NewAuthHandler(svc service.AuthService, secure bool, timeout time.Duration) *AuthHandler {
	return &AuthHandler{svc: svc, secure: secure, timeout: timeout}
}

func (h *AuthHandler) Login(c *gin.Context) {
	var creds dto.LoginRequest
	if !bindAndValidate(c, &creds) {
		return
	}
	ctx, cancel := requestContext(c, h.timeout)
	defer cancel()

	// rememberMe define la duración del token y de la cookie
	resp, expiration, err := h.svc.Login(ctx, creds)
	if errors.Is(err, service.ErrInvalidCredentials) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Credenciales inválidas"})
		return
	}
	if err != nil {
		respondError(c, err, "Usuario no encontrado")
		return
	}

	// El token va en la cookie y también en el body para clientes sin cookies
	middleware.SetAuthCookie(c, resp.Token, expiration, h.secure)
	c.JSON(http.StatusOK, gin.H{"message": "Logueado correctamente", "token": resp.Token, "expiresIn": resp.ExpiresIn, "user": resp.User})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	middleware.ClearAuthCookie(c, h.secure)
	c.JSON(http.StatusOK, gin.H{"message": "Sesión cerrada correctamente"})
}

// Me corre detrás de AuthMiddleware, el token ya está validado
func (h *AuthHandler) Me(c *gin.Context) {
	ctx, cancel := requestContext(c, h.timeout)
	defer cancel()

	user, err := h.svc.Me(ctx, c.GetString(middleware.UserIDKey))
	if err != nil {
		respondError(c, err, "Usuario no encontrado")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "user": user})
}

// CreateUser solo es accesible con el header X-Admin-Secret
func (h *AuthHandler) CreateUser(c *gin.Context) {
	var req dto.CreateUserRequest
	if !bindAndValidate(c, &req) {
		return
	}
	ctx, cancel := requestContext(c, h.timeout)
	defer cancel()

	user, err := h.svc.CreateUser(ctx, req)
	if err != nil {
		respondError(c, err, "Usuario no encontrado")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Usuario creado exitosamente", "user": user})
}
