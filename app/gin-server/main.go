package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/sentinela-app/sentinela/config"
	"github.com/sentinela-app/sentinela/internal/api/handlers"
	"github.com/sentinela-app/sentinela/internal/api/middleware"
	"github.com/sentinela-app/sentinela/internal/api/routes"
	"github.com/sentinela-app/sentinela/internal/logger"
	mongorepo "github.com/sentinela-app/sentinela/internal/repositories/mongo"
	pgrepo "github.com/sentinela-app/sentinela/internal/repositories/postgres"
	"github.com/sentinela-app/sentinela/internal/services"
)

func main() {
	_ = godotenv.Load()

	// Init PostgreSQL
	if err := config.InitPostgres(); err != nil {
		log.Fatalf("PostgreSQL init error: %v", err)
	}
	fmt.Println("PostgreSQL connected")

	// Init MongoDB (audit trail)
	if err := config.InitMongo(); err != nil {
		log.Fatalf("MongoDB init error: %v", err)
	}
	if err := config.EnsureMongoIndexes(); err != nil {
		log.Fatalf("MongoDB index error: %v", err)
	}
	fmt.Println("MongoDB connected")

	// Init Redis (device status flags)
	if err := config.InitRedis(); err != nil {
		log.Fatalf("Redis init error: %v", err)
	}
	fmt.Println("Redis connected")

	// Init object store (signed S3-compatible client)
	if err := config.InitObjectStore(); err != nil {
		log.Fatalf("Object store init error: %v", err)
	}

	l := logger.New()

	dbName := os.Getenv("MONGO_DB")
	if dbName == "" {
		dbName = "sentinela"
	}
	mongoDB := config.MongoClient.Database(dbName)

	sessionRepo := pgrepo.NewSessionRepo(config.PostgresDB)
	recordingRepo := pgrepo.NewRecordingRepo(config.PostgresDB)
	auditRepo := mongorepo.NewAuditRepo(mongoDB)

	audit := services.NewAuditService(auditRepo, l)
	device := services.NewRedisDeviceStatus(config.RedisClient)
	pipeline := services.NewHTTPPipelineTrigger(os.Getenv("PIPELINE_TRIGGER_URL"), l)

	merge := services.NewMergeService(sessionRepo, recordingRepo, config.ObjectStore, audit, pipeline, l)
	maintenance := services.NewMaintenanceService(sessionRepo, merge, device, audit, l, services.MaintenanceConfig{})
	sessions := services.NewSessionService(sessionRepo, device, audit)

	// Optional in-process sweeper, for deployments without an external cron.
	if raw := os.Getenv("SWEEP_INTERVAL"); raw != "" {
		interval, err := time.ParseDuration(raw)
		if err != nil {
			log.Fatalf("invalid SWEEP_INTERVAL: %v", err)
		}
		go func() {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for range ticker.C {
				ctx, cancel := context.WithTimeout(context.Background(), interval)
				maintenance.Sweep(ctx)
				cancel()
			}
		}()
		l.WithField("interval", interval.String()).Info("internal sweeper enabled")
	}

	// Start Gin server
	r := gin.Default()
	r.Use(middleware.RequestLogger(l))

	routes.RegisterRoutes(r, routes.Deps{
		Session:     handlers.NewSessionHandler(sessions),
		Recording:   handlers.NewRecordingHandler(recordingRepo),
		Maintenance: handlers.NewMaintenanceHandler(maintenance),
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	r.Run(":" + port)
}
