package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/hotelpms/hotel-backend/internal/config"
	"github.com/hotelpms/hotel-backend/internal/database"
	"github.com/hotelpms/hotel-backend/internal/models"
)

func main() {
	var (
		impUID        string
		reservationID string
		limit         int
	)
	flag.StringVar(&impUID, "imp", "", "Show the trail of one gateway transaction (imp_uid)")
	flag.StringVar(&reservationID, "reservation", "", "Show the trail of one reservation")
	flag.IntVar(&limit, "limit", 20, "Number of recent amount mismatches to show")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	repo := database.NewPaymentAuditRepository(db, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var (
		audits []*models.PaymentAudit
		title  string
	)
	switch {
	case impUID != "":
		title = "Audit trail for imp_uid " + impUID
		audits, err = repo.GetByIMPUID(ctx, impUID)
	case reservationID != "":
		id, parseErr := uuid.Parse(reservationID)
		if parseErr != nil {
			log.Fatalf("Invalid reservation id: %v", parseErr)
		}
		title = "Audit trail for reservation " + reservationID
		audits, err = repo.GetByReservation(ctx, id)
	default:
		title = fmt.Sprintf("Last %d amount mismatches", limit)
		audits, err = repo.GetAmountMismatches(ctx, limit)
	}
	if err != nil {
		log.Fatalf("Failed to read payment audits: %v", err)
	}

	fmt.Printf("=== %s ===\n", title)
	if len(audits) == 0 {
		fmt.Println("(no entries)")
		return
	}

	fmt.Println("----------------------------------------------")
	for _, a := range audits {
		fmt.Printf("- %s | %-32s | %-15s | imp=%s merchant=%s | expected=%s received=%s | %s\n",
			a.CreatedAt.Format(time.RFC3339),
			a.EventType,
			a.EventSource,
			deref(a.IMPUID),
			deref(a.MerchantUID),
			amount(a.ExpectedAmount),
			amount(a.ReceivedAmount),
			deref(a.ErrorMessage),
		)
	}
	fmt.Println("----------------------------------------------")
	fmt.Printf("%d entries\n", len(audits))
}

func deref(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}

func amount(n *int64) string {
	if n == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *n)
}
