package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/template/html/v2"

	"github.com/soutienweb/cagnotte/app/repository"
	"github.com/soutienweb/cagnotte/internal/pkg/cache"
	"github.com/soutienweb/cagnotte/internal/pkg/database"
	"github.com/soutienweb/cagnotte/internal/pkg/env"
	"github.com/soutienweb/cagnotte/internal/pkg/jobqueue"
	"github.com/soutienweb/cagnotte/internal/pkg/mail"
	"github.com/soutienweb/cagnotte/internal/pkg/payments"
	"github.com/soutienweb/cagnotte/internal/pkg/router"
)

func main() {
	app := NewApplication()

	// Background jobs run in-process; external cron can use cmd/jobs instead.
	manager := jobqueue.GetManager()
	manager.Configure(jobqueue.Deps{
		DB:       database.GetDB(),
		Payments: payments.NewDefaultService(database.GetDB()),
		Mailer:   mail.SendMail,
	})
	manager.Start()

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		manager.Stop()
		_ = app.Shutdown()
	}()

	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	log.Fatal(err)
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()
	repository.InitializeFactory(database.GetDB())

	engine := html.New("./views", ".html")
	engine.AddFunc("euros", func(cents int64) string {
		sign := ""
		if cents < 0 {
			sign = "-"
			cents = -cents
		}
		return fmt.Sprintf("%s%d,%02d €", sign, cents/100, cents%100)
	})
	engine.AddFunc("date", func(t time.Time) string {
		return t.Format("02/01/2006")
	})
	engine.AddFunc("dateptr", func(t *time.Time) string {
		if t == nil {
			return ""
		}
		return t.Format("02/01/2006")
	})
	app := fiber.New(fiber.Config{
		Views: engine,
	})
	app.Use(recover.New(), logger.New())
	app.Get("/metrics", monitor.New())
	app.Static("/", "./public/assets")

	// SWAGGER / OPENAPI
	openAPICfg := swagger.Config{
		BasePath: "/docs/api/",
		FilePath: "./public/docs/v1/openapi.yml",
		Path:     "v1",
	}
	app.Use(swagger.New(openAPICfg))

	// ROUTER
	router.InstallRouter(app)

	return app
}
