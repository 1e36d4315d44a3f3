package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"classtrack/internal/config"
	"classtrack/internal/queue"
	"classtrack/internal/stats"
	"classtrack/internal/store"
)

// Worker consumes scan events and maintains the per-class daily counters.
// Everything here is derived data; a dropped message skews a counter, never
// an attendance record.
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
		q = queue.NewRedisQueue(redisClient.Client, "classtrack:scans")
	}

	statsRepo := stats.NewRepository(db.Client)

	messages, err := q.Consume(ctx)
	if err != nil {
		log.Fatalf("queue consume init failed: %v", err)
	}

	log.Println("worker started, waiting for scan events...")
	for msg := range messages {
		if msg.Type != queue.MessageTypeScan {
			continue
		}

		var evt queue.ScanEvent
		if err := json.Unmarshal(msg.Body, &evt); err != nil {
			log.Printf("bad scan event: %v", err)
			continue
		}

		now := time.Now().UTC()
		switch evt.Kind {
		case "end":
			err = statsRepo.BumpEndScans(ctx, evt.ClassID, now)
		default:
			err = statsRepo.BumpStartScans(ctx, evt.ClassID, now)
		}
		if err != nil {
			log.Printf("bump stats for class %s failed: %v", evt.ClassID, err)
			continue
		}
	}

	log.Println("worker stopped")
}
