package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"schoolportal/internal/attendance"
	"schoolportal/internal/config"
	"schoolportal/internal/queue"
	"schoolportal/internal/store"
)

// Worker consumes mark events and keeps per-student attendance tallies current.
func main() {
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal received")
		cancel()
	}()

	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer db.Close()

	redisClient := store.NewRedis(cfg.RedisAddr)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "portal:marks")
	}

	repo := attendance.NewPostgresRepository(db.Client)

	messages, err := q.Consume(ctx)
	if err != nil {
		log.Fatalf("queue consume init failed: %v", err)
	}

	log.Println("worker started, waiting for messages...")
	for msg := range messages {
		if msg.Type != "mark" {
			continue
		}

		// Body is studentID|date|status.
		parts := strings.SplitN(string(msg.Body), "|", 3)
		if len(parts) != 3 {
			log.Printf("malformed mark message: %q", msg.Body)
			continue
		}
		studentID, date, status := parts[0], parts[1], attendance.Status(parts[2])
		if !status.Valid() {
			log.Printf("mark message with unknown status: %q", msg.Body)
			continue
		}

		if err := repo.BumpSummary(ctx, studentID, status); err != nil {
			log.Printf("summary update for %s on %s failed: %v", studentID, date, err)
			continue
		}
		log.Printf("summary updated for %s (%s %s)", studentID, date, status)
	}

	log.Println("worker stopped")
}
