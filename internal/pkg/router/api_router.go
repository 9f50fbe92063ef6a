package router

import (
	"net"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	redisstorage "github.com/gofiber/storage/redis"

	"github.com/oggatonama/oggatonama/app/controllers"
	"github.com/oggatonama/oggatonama/internal/pkg/cache"
	"github.com/oggatonama/oggatonama/internal/pkg/carbon"
	"github.com/oggatonama/oggatonama/internal/pkg/env"
	"github.com/oggatonama/oggatonama/internal/pkg/middleware"
)

type ApiRouter struct {
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api",
		cors.New(cors.Config{
			AllowOrigins: env.GetEnv("CORS_ORIGINS", "*"),
			AllowHeaders: "Origin, Content-Type, Accept, Authorization",
			AllowMethods: "GET, POST, PUT, PATCH, DELETE, OPTIONS",
		}),
		limiter.New(limiter.Config{
			Max:        limiterMax(),
			Expiration: 1 * time.Minute,
			Storage:    limiterStorage(),
		}),
		carbon.NewMiddleware(),
		middleware.BearerContext,
	)

	api.Get("/test", controllers.HandleTest)

	auth := api.Group("/auth")
	auth.Post("/signup", controllers.HandleSignUp)
	auth.Post("/signin", controllers.HandleSignIn)
	auth.Post("/forgot-password", controllers.HandleForgotPassword)
	auth.Post("/reset-password", controllers.HandleResetPassword)

	profile := api.Group("/profile", middleware.RequireAuth)
	profile.Get("/", controllers.HandleGetProfile)
	profile.Put("/", controllers.HandleUpdateProfile)

	register := api.Group("/register")
	register.Get("/", controllers.HandleListReports)
	register.Get("/:id", controllers.HandleGetReport)
	register.Post("/", middleware.RequireAuth, controllers.HandleCreateReport)
	register.Patch("/:id/claim", middleware.RequireAuth, controllers.HandleClaimReport)
	register.Post("/:id/approve", middleware.RequireAuth, controllers.HandleApproveReport)

	carbonGroup := api.Group("/carbon")
	carbonGroup.Get("/stats", controllers.HandleCarbonStats)
	carbonGroup.Get("/realtime", controllers.HandleCarbonRealtime)
}

func limiterMax() int {
	if v, err := strconv.Atoi(env.GetEnv("RATE_LIMIT_PER_MINUTE", "120")); err == nil && v > 0 {
		return v
	}
	return 120
}

// limiterStorage shares rate-limit counters across instances through the
// cache Redis. Falls back to the in-memory default when Redis is not
// configured, which is what tests run against.
func limiterStorage() fiber.Storage {
	client := cache.GetClient()
	if client == nil {
		return nil
	}

	host := "localhost"
	port := 6379
	if h, p, err := net.SplitHostPort(client.Options().Addr); err == nil {
		host = h
		if v, err := strconv.Atoi(p); err == nil {
			port = v
		}
	}

	return redisstorage.New(redisstorage.Config{
		Host:     host,
		Port:     port,
		Password: client.Options().Password,
		Database: 1,
		Reset:    false,
	})
}
