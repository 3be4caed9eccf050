package main

import (
	"context"
	"log"
	"os"
	"strconv"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"edumart2/internal/jobs"
	"edumart2/internal/repositories"
	"edumart2/internal/services"
)

func main() {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	pool, err := pgxpool.New(context.Background(), databaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}
	redisPassword := os.Getenv("REDIS_PASSWORD")
	redisDB := 0
	if redisDBStr := os.Getenv("REDIS_DB"); redisDBStr != "" {
		if db, err := strconv.Atoi(redisDBStr); err == nil {
			redisDB = db
		}
	}

	userRepo := repositories.NewUserRepo(pool)
	credentialRepo := repositories.NewCredentialRepo(pool)
	auditRepo := repositories.NewAuditLogsRepo(pool)

	auditSvc := services.NewAuditLogsService(auditRepo)
	credSvc := services.NewCredentialService(credentialRepo)

	credentialHandler := jobs.NewCredentialTaskHandler(userRepo, credentialRepo, credSvc, auditSvc)

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     redisAddr,
			Password: redisPassword,
			DB:       redisDB,
		},
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(jobs.TypeCredentialIssue, credentialHandler.ProcessTask)

	log.Printf("Starting edumart2 worker")
	if err := srv.Run(mux); err != nil {
		log.Fatalf("Worker stopped: %v", err)
	}
}
