package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/hotelpms/hotel-backend/internal/config"
	"github.com/hotelpms/hotel-backend/internal/database"
	"github.com/hotelpms/hotel-backend/internal/services"
)

func main() {
	var (
		dbURLFlag  string
		graceHours int
		dryRun     bool
	)
	flag.StringVar(&dbURLFlag, "database-url", "", "PostgreSQL connection string (overrides DATABASE_URL)")
	flag.IntVar(&graceHours, "grace-hours", 0, "Grace period after withdrawal in hours (overrides USER_DELETION_GRACE_HOURS, default 72)")
	flag.BoolVar(&dryRun, "dry-run", false, "Only report how many accounts would be purged")
	flag.Parse()

	// Optional .env in the working directory keeps secrets off the command line
	_ = godotenv.Load()

	dbURL := dbURLFlag
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL")
	}
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set and -database-url was not provided")
	}

	grace := 72 * time.Hour
	if graceHours > 0 {
		grace = time.Duration(graceHours) * time.Hour
	} else if v, err := strconv.Atoi(os.Getenv("USER_DELETION_GRACE_HOURS")); err == nil && v > 0 {
		grace = time.Duration(v) * time.Hour
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	db, err := database.NewConnection(config.DatabaseConfig{
		URL:                dbURL,
		MaxConnections:     2,
		MaxIdleConnections: 1,
	})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	cleanup := services.NewUserCleanupService(
		database.NewUserRepository(db),
		database.NewRefreshTokenRepository(db),
		grace,
		logger,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	fmt.Printf("Purging accounts withdrawn before %s (grace %s)\n", cleanup.Cutoff().Format(time.RFC3339), grace)

	if dryRun {
		n, err := cleanup.CountExpired(ctx)
		if err != nil {
			log.Fatalf("failed to count expired accounts: %v", err)
		}
		fmt.Printf("Dry run: %d account(s) would be purged.\n", n)
		return
	}

	purged, err := cleanup.PurgeExpired(ctx)
	if err != nil {
		log.Fatalf("failed to purge accounts: %v", err)
	}
	tokens, err := cleanup.CleanupTokens(ctx)
	if err != nil {
		log.Fatalf("failed to clean up refresh tokens: %v", err)
	}

	fmt.Printf("Purged %d account(s) and %d stale refresh token(s).\n", purged, tokens)
}
