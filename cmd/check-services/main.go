package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/hotelpms/hotel-backend/internal/cache"
	"github.com/hotelpms/hotel-backend/internal/config"
	"github.com/hotelpms/hotel-backend/internal/database"
	"github.com/hotelpms/hotel-backend/internal/events"
	"github.com/hotelpms/hotel-backend/internal/models"
	"github.com/hotelpms/hotel-backend/pkg/jwt"
	"github.com/hotelpms/hotel-backend/pkg/portone"
)

// check-services verifies that every backing service in the environment
// is reachable with the configured credentials. It exits non-zero on the
// first required service that fails.
func main() {
	fmt.Println("🧪 Hotel backend service check")
	fmt.Println("----------------------------")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}
	fmt.Println("✅ Configuration loaded")

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	checkDatabase(ctx, cfg)
	checkJWT(cfg)
	checkRedis(ctx, cfg, logger)
	checkGateway(ctx, cfg, logger)
	checkBroker(cfg, logger)

	fmt.Println("----------------------------")
	fmt.Println("✅ All required services reachable")
}

func checkDatabase(ctx context.Context, cfg *config.Config) {
	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		log.Fatalf("❌ Database: %v", err)
	}
	defer db.Close()

	var rooms int
	if err := db.GetContext(ctx, &rooms, "SELECT COUNT(*) FROM rooms"); err != nil {
		log.Fatalf("❌ Database schema: %v (run the server once with AUTO_MIGRATE=true)", err)
	}
	fmt.Printf("✅ Database connected, %d rooms in catalog\n", rooms)
}

func checkJWT(cfg *config.Config) {
	svc := jwt.NewService(cfg.JWT.Secret, cfg.JWT.RefreshSecret, cfg.JWT.AccessTokenExpiry, cfg.JWT.RefreshTokenExpiry)

	userID := uuid.New()
	token, err := svc.GenerateAccessToken(userID, "service-check", []string{models.RoleUser})
	if err != nil {
		log.Fatalf("❌ JWT sign: %v", err)
	}
	claims, err := svc.ValidateAccessToken(token)
	if err != nil || claims.UserID != userID {
		log.Fatalf("❌ JWT round trip: %v", err)
	}
	fmt.Println("✅ JWT secrets sign and verify")
}

func checkRedis(ctx context.Context, cfg *config.Config, logger *logrus.Logger) {
	rdb := cache.NewRedisClient(cfg.Redis, logger)
	if rdb == nil {
		fmt.Printf("⚠️  Redis at %s unreachable: rate limiting and the shared gateway token are disabled\n", cfg.Redis.RedisAddr())
		return
	}
	defer rdb.Close()

	counter := cache.NewWindowCounter(rdb, "service-check")
	if _, _, err := counter.Hit(ctx, uuid.NewString(), time.Second); err != nil {
		log.Fatalf("❌ Redis write: %v", err)
	}
	fmt.Printf("✅ Redis reachable at %s\n", cfg.Redis.RedisAddr())
}

func checkGateway(ctx context.Context, cfg *config.Config, logger *logrus.Logger) {
	if cfg.Payment.APIKey == "" || cfg.Payment.APISecret == "" {
		fmt.Println("⚠️  PORTONE_API_KEY/PORTONE_API_SECRET not set, skipping gateway check")
		return
	}

	client := portone.NewClient(portone.Config{
		APIURL:    cfg.Payment.APIURL,
		APIKey:    cfg.Payment.APIKey,
		APISecret: cfg.Payment.APISecret,
		Timeout:   cfg.Payment.Timeout,
	}, logger)
	if _, err := client.GetAccessToken(ctx); err != nil {
		log.Fatalf("❌ PortOne token: %v", err)
	}
	fmt.Printf("✅ PortOne credentials accepted by %s\n", cfg.Payment.APIURL)
}

func checkBroker(cfg *config.Config, logger *logrus.Logger) {
	if cfg.RabbitMQ.URL == "" {
		fmt.Println("⚠️  RABBITMQ_URL not set, domain events disabled")
		return
	}

	publisher, err := events.NewRabbitPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ RabbitMQ: %v\n", err)
		os.Exit(1)
	}
	defer publisher.Close()
	fmt.Printf("✅ RabbitMQ exchange %q declared\n", cfg.RabbitMQ.Exchange)
}
