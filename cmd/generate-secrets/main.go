package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/hotelpms/hotel-backend/internal/utils"
)

func main() {
	var (
		appendTo string
		quiet    bool
	)
	flag.StringVar(&appendTo, "append", "", "Append the assignments to this .env file instead of printing them")
	flag.BoolVar(&quiet, "quiet", false, "Print only the assignments")
	flag.Parse()

	accessSecret, refreshSecret, err := utils.GenerateJWTSecrets()
	if err != nil {
		log.Fatalf("Failed to generate secrets: %v", err)
	}
	lines := utils.EnvLines(accessSecret, refreshSecret)

	if appendTo != "" {
		f, err := os.OpenFile(appendTo, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
		if err != nil {
			log.Fatalf("Failed to open %s: %v", appendTo, err)
		}
		defer f.Close()
		for _, line := range lines {
			if _, err := fmt.Fprintln(f, line); err != nil {
				log.Fatalf("Failed to write %s: %v", appendTo, err)
			}
		}
		fmt.Printf("Wrote JWT_SECRET and JWT_REFRESH_SECRET to %s\n", appendTo)
		return
	}

	if !quiet {
		fmt.Printf("# %d-byte hex secrets for the hotel backend. Keep them out of version control.\n", utils.SecretBytes)
	}
	for _, line := range lines {
		fmt.Println(line)
	}
}
