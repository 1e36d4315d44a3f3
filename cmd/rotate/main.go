package main

import (
	"context"
	"errors"
	"log"
	"os"
	"time"

	"classtrack/internal/config"
	"classtrack/internal/rotation"
	"classtrack/internal/store"
)

// One-shot token rotation for cron. Rotates start tokens, then end tokens;
// exits 0 on full success and 2 if either sweep fails, so the scheduler can
// alert. Sessions rotated before a failure stay rotated.
func main() {
	cfg := config.Load()

	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Printf("db connect failed: %v", err)
		os.Exit(2)
	}
	defer db.Close()

	redisClient := store.NewRedis(cfg.RedisAddr)
	rotator := rotation.NewRotator(rotation.NewRepository(db.Client), redisClient.Client)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	startCount, err := rotator.RotateStartTokens(ctx)
	if err != nil {
		if errors.Is(err, rotation.ErrLocked) {
			log.Println("another rotation run is in progress, skipping")
			return
		}
		log.Printf("start token rotation failed after %d sessions: %v", startCount, err)
		os.Exit(2)
	}
	log.Printf("rotated %d start tokens", startCount)

	endCount, err := rotator.RotateEndTokens(ctx)
	if err != nil {
		if errors.Is(err, rotation.ErrLocked) {
			log.Println("another rotation run is in progress, skipping")
			return
		}
		log.Printf("end token rotation failed after %d sessions: %v", endCount, err)
		os.Exit(2)
	}
	log.Printf("rotated %d end tokens", endCount)
}
