package http

import (
	"log/slog"
	"strings"
	"time"

	"github.com/geocoder89/recipehub/internal/auth"
	"github.com/geocoder89/recipehub/internal/config"
	"github.com/geocoder89/recipehub/internal/domain/recipe"
	"github.com/geocoder89/recipehub/internal/http/handlers"
	"github.com/geocoder89/recipehub/internal/http/middlewares"
	"github.com/geocoder89/recipehub/internal/observability"
	"github.com/geocoder89/recipehub/internal/recipes"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// Deps are the services the router exposes.
type Deps struct {
	Users    handlers.UserService
	Verifier handlers.Authenticator
	Tokens   *auth.TokenIssuer
	Recipes  *recipes.Service

	Prom     *observability.Prom
	Gatherer prometheus.Gatherer

	// MediaRoot is served under cfg.MediaURL when set (filesystem blobs).
	MediaRoot string
	Checks    map[string]handlers.Pinger
}

func NewRouter(log *slog.Logger, cfg config.Config, deps Deps) *gin.Engine {
	if cfg.Env != "dev" && cfg.Env != "test" {
		gin.SetMode(gin.ReleaseMode)
	}
	handlers.RegisterValidators()

	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.NoMethod(handlers.RespondMethodNotAllowed)
	r.NoRoute(func(ctx *gin.Context) {
		handlers.RespondNotFound(ctx, "Not found.")
	})

	mediaPrefix := ""
	if deps.MediaRoot != "" && strings.HasPrefix(cfg.MediaURL, "/") {
		mediaPrefix = strings.TrimRight(cfg.MediaURL, "/")
	}

	// middleware
	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	if deps.Prom != nil {
		r.Use(deps.Prom.GinHandleMiddleware())
	}
	r.Use(middlewares.RequestLogger(log))
	r.Use(middlewares.SecurityHeaders(mediaPrefix))
	r.Use(middlewares.CORSMiddleware(cfg.AllowedOrigins))

	// health
	h := handlers.NewHealthHandler(deps.Checks)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)

	if deps.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	if mediaPrefix != "" {
		r.Static(mediaPrefix, deps.MediaRoot)
	}

	authMw := middlewares.NewAuthMiddleware(deps.Tokens)
	maxBody := middlewares.MaxBodyBytes(cfg.MaxBodyBytes)
	requireJSON := middlewares.RequireJSON()
	jsonBody := func(h gin.HandlerFunc) []gin.HandlerFunc {
		return []gin.HandlerFunc{maxBody, requireJSON, h}
	}

	// users
	usersHandler := handlers.NewUsersHandler(deps.Users, deps.Verifier, deps.Tokens, deps.Prom)
	loginLimiter := middlewares.NewRateLimiter(cfg.LoginRateLimit, time.Minute)

	users := r.Group("/users")
	users.POST("/", jsonBody(usersHandler.Create)...)
	users.POST("/token/", loginLimiter.RateLimiterMiddleware(middlewares.KeyByIP), maxBody, requireJSON, usersHandler.Token)

	me := users.Group("/me", authMw.RequireAuth())
	me.GET("/", usersHandler.Me)
	me.PATCH("/", jsonBody(usersHandler.UpdateMe)...)

	// recipe API; everything below requires a token
	api := r.Group("/recipe", authMw.RequireAuth())

	for _, kind := range []recipe.Kind{recipe.KindTag, recipe.KindIngredient} {
		lh := handlers.NewLabelsHandler(deps.Recipes, kind)
		g := api.Group("/" + kind.Field())
		g.GET("/", lh.List)
		g.POST("/", jsonBody(lh.Create)...)
		g.GET("/:id/", lh.Get)
		g.PUT("/:id/", jsonBody(lh.Update)...)
		g.PATCH("/:id/", jsonBody(lh.Patch)...)
		g.DELETE("/:id/", lh.Delete)
	}

	rh := handlers.NewRecipesHandler(deps.Recipes)
	rg := api.Group("/recipes")
	rg.GET("/", rh.List)
	rg.POST("/", jsonBody(rh.Create)...)
	rg.GET("/:id/", rh.Get)
	rg.PUT("/:id/", jsonBody(rh.Update)...)
	rg.PATCH("/:id/", jsonBody(rh.Patch)...)
	rg.DELETE("/:id/", rh.Delete)
	rg.POST("/:id/upload-image/", middlewares.MaxBodyBytes(cfg.MaxUploadBytes()), rh.UploadImage)

	return r
}
