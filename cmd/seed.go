package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed the database with sample users at each KYC level for development and testing purposes.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(".")
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		db, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}
		defer db.Close()

		users := []struct {
			ID       string
			Email    string
			KycLevel string
		}{
			{"payer-demo", "payer@mail.com", "NONE"},
			{"creator-basic", "creator-basic@mail.com", "BASIC"},
			{"creator-enhanced", "creator-enhanced@mail.com", "ENHANCED"},
		}

		for _, u := range users {
			var exists int
			err := db.QueryRow("SELECT 1 FROM users WHERE id = $1", u.ID).Scan(&exists)
			if err == nil {
				fmt.Printf("user %s already exists; skipping\n", u.ID)
				continue
			}

			_, err = db.Exec(
				"INSERT INTO users (id, email, kyc_level, created_at, updated_at) VALUES ($1, $2, $3, now(), now())",
				u.ID, u.Email, u.KycLevel,
			)
			if err != nil {
				log.Fatalf("failed to insert user %s: %v", u.ID, err)
			}
			fmt.Printf("Seeded user %s (%s)\n", u.ID, u.KycLevel)
		}
	},
}
