package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/oggatonama/oggatonama/app/repository"
	"github.com/oggatonama/oggatonama/internal/pkg/cache"
	"github.com/oggatonama/oggatonama/internal/pkg/database"
	"github.com/oggatonama/oggatonama/internal/pkg/env"
	"github.com/oggatonama/oggatonama/internal/pkg/jobqueue"
	"github.com/oggatonama/oggatonama/internal/pkg/router"
)

func main() {
	app := NewApplication()
	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "5000")))
	log.Fatal(err)
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()

	repository.InitializeFactory(database.GetDB())

	// background delivery of reset mails and emission records
	jobqueue.GetManager().Start()

	// Find the project root; the binary may run from cmd/oggatonama.
	basePaths := []string{"./", "../../", "../../../"}
	basePath := ""
	for _, path := range basePaths {
		if _, err := os.Stat(path + "public"); !os.IsNotExist(err) {
			basePath = path
			break
		}
	}
	if basePath == "" {
		basePath = "./"
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 10 * 1024 * 1024,
	})

	app.Use(recover.New(), logger.New())

	// fiber metrics
	app.Get("/metrics", basicauth.New(basicauth.Config{
		Users: map[string]string{
			env.GetEnv("METRICS_USER", "admin"): env.GetEnv("METRICS_PASSWORD", "admin"),
		},
	}), monitor.New())

	// uploaded photos when running on local storage
	app.Static("/uploads", env.GetEnv("UPLOAD_DIR", basePath+"uploads"), fiber.Static{
		CacheDuration: 10 * time.Second,
		MaxAge:        604800, // 7 days
	})

	app.Use(swagger.New(swagger.Config{
		BasePath: "/docs/api/",
		FilePath: basePath + "public/docs/v1/openapi.yml",
		Path:     "v1",
	}))

	router.InstallRouter(app)

	return app
}
