package router

import (
	"calmatevibes-api/config"
	"calmatevibes-api/handlers"
	"calmatevibes-api/middleware"
	"calmatevibes-api/service"

	"github.com/gin-gonic/gin"
)

// Deps are the already-built services the HTTP layer needs.
type Deps struct {
	Config     *config.Config
	Products   service.ProductService
	Categories service.CategoryService
	Auth       service.AuthService
	Limiter    middleware.Limiter
	Checks     map[string]handlers.Check
}

// New returns the configured gin engine.
func New(d Deps) *gin.Engine {
	cfg := d.Config
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS(cfg.Origins()))
	if d.Limiter != nil {
		r.Use(middleware.RateLimiter(d.Limiter))
	}

	productsH := handlers.NewProductHandler(d.Products, cfg.RequestTimeout)
	categoriesH := handlers.NewCategoryHandler(d.Categories, cfg.RequestTimeout)
	authH := handlers.NewAuthHandler(d.Auth, cfg.IsProduction(), cfg.RequestTimeout)
	requireAuth := middleware.AuthMiddleware([]byte(cfg.JWTSecret))

	api := r.Group("/api")
	api.GET("/health", handlers.Health(d.Checks))

	auth := api.Group("/auth")
	{
		auth.POST("/login", authH.Login)
		auth.POST("/logout", authH.Logout)
		auth.GET("/me", requireAuth, authH.Me)
	}
	api.POST("/admin/users", middleware.AdminSecret(cfg.AdminSecretKey), authH.CreateUser)

	products := api.Group("/productos")
	{
		products.GET("", productsH.List)
		products.GET("/:id", productsH.Get)
		products.GET("/:id/movimientos", requireAuth, productsH.Movements)
		products.POST("", requireAuth, productsH.Create)
		products.PUT("/:id", requireAuth, productsH.Update)
		products.DELETE("/:id", requireAuth, productsH.Delete)
		products.PATCH("/:id/restaurar", requireAuth, productsH.Restore)
		products.PATCH("/:id/stock", requireAuth, productsH.AdjustStock)
	}

	categories := api.Group("/categorias")
	{
		categories.GET("", categoriesH.List)
		categories.GET("/:name", categoriesH.Get)
		categories.POST("", requireAuth, categoriesH.Create)
		categories.PUT("/:name", requireAuth, categoriesH.Update)
		categories.DELETE("/:name", requireAuth, categoriesH.Delete)
	}

	return r
}
