package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lista-crm/sites-platform/internal/application"
	"github.com/lista-crm/sites-platform/internal/application/commands"
	"github.com/lista-crm/sites-platform/internal/application/materializer"
	"github.com/lista-crm/sites-platform/internal/application/processors"
	"github.com/lista-crm/sites-platform/internal/application/query"
	"github.com/lista-crm/sites-platform/internal/application/resolver"
	"github.com/lista-crm/sites-platform/internal/infra/auth"
	"github.com/lista-crm/sites-platform/internal/infra/cache"
	"github.com/lista-crm/sites-platform/internal/infra/config"
	"github.com/lista-crm/sites-platform/internal/infra/db/repo"
	"github.com/lista-crm/sites-platform/internal/infra/mail"
	"github.com/lista-crm/sites-platform/internal/infra/storage"
	"github.com/lista-crm/sites-platform/internal/infra/themes"
	"github.com/lista-crm/sites-platform/internal/presentation/gateway"
	"github.com/lista-crm/sites-platform/internal/presentation/rest"
	"github.com/lista-crm/sites-platform/internal/presentation/scheduler"
	"github.com/lista-crm/sites-platform/pkg/db"
	"github.com/lista-crm/sites-platform/pkg/env"
)

func Init() {
	// DB
	dbConfig := db.NewConfig()
	pool, err := pgxpool.New(context.Background(), dbConfig.GetDSN())
	if err != nil {
		log.Panicf("failed to create pool: %v", err)
	}
	err = pool.Ping(context.Background())
	if err != nil {
		log.Panicf("failed to connect to db: %v", err)
	}
	uowFactory := db.NewUoWFactory(pool)

	// Configs
	platformConfig := config.NewPlatformConfig()
	authConfig := auth.NewConfig()
	outboxConfig := scheduler.NewOutboxConfig()
	themesConfig := themes.NewConfig()

	// AWS
	cfg, err := awsConfig.LoadDefaultConfig(context.TODO())
	if err != nil {
		log.Panic("can't load aws config", err)
	}
	store := storage.NewStorage(cfg)

	// Redis
	redisCache := cache.NewRedisCache(cache.NewConfig())

	// Mail
	mailServer := mail.NewServer(mail.NewConfig())

	directory := repo.NewDirectoryRepo(pool)
	res := resolver.New(directory, platformConfig, redisCache)

	registry := themes.NewRegistry(pool, themesConfig)
	builder := materializer.New(registry, store, platformConfig.APIBaseURL)

	collection := &application.Collection{
		CreateSite:           commands.NewCreateSite(uowFactory, registry, platformConfig),
		UpdateDraft:          commands.NewUpdateDraft(uowFactory),
		PublishSite:          commands.NewPublishSite(uowFactory, directory, res, platformConfig),
		CreatePreviewSession: commands.NewCreatePreviewSession(uowFactory, platformConfig),
		GetSite:              query.NewGetSite(pool),
		GetDraft:             query.NewGetDraft(pool),
	}
	procs := &application.Processors{
		MaterializeVersion: processors.NewMaterializeVersion(pool, builder),
		SendMail:           processors.NewSendMail(mailServer, uowFactory),
	}

	handler := rest.NewServer(collection, res)
	app := fiber.New(fiber.Config{
		IdleTimeout: 5 * time.Second,
	})
	app.Use(cors.New(cors.Config{
		AllowOrigins:     env.GetEnv("CORS_ORIGINS", "http://localhost:3000"),
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
	}))
	rest.RegisterHandlers(app, handler, authConfig)
	// the gateway catch-all registers last, after the API surface
	serve := gateway.New(res, store, platformConfig)
	serve.RegisterRoutes(app)

	outboxPoller := scheduler.NewOutboxPoller(procs, uowFactory, outboxConfig)
	go outboxPoller.Start()

	go func() {
		if err := app.Listen(":" + env.GetEnv("HTTP_PORT", "8080")); err != nil {
			log.Panic(err)
		}
	}()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	<-c
	fmt.Println("Gracefully shutting down...")
	_ = app.Shutdown()
	outboxPoller.Stop()

	fmt.Println("Running cleanup tasks...")

	uowFactory.Pool.Close()
	fmt.Println("Fiber was successfully shutdown.")
}
