package cmd

import (
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/frahmantamala/billing-reconciliation/internal/core/datamodel/billing"
)

var clearData bool

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed the database with sample businesses and draft invoices for development and testing purposes.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(".")
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		sqlxDB, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}

		db, err := gorm.Open(gormpostgres.New(gormpostgres.Config{Conn: sqlxDB.DB}), &gorm.Config{})
		if err != nil {
			log.Fatalf("failed to open gorm: %v", err)
		}

		if clearData {
			for _, table := range []string{"webhook_events", "payout_records", "invoices", "businesses"} {
				if err := db.Exec("DELETE FROM " + table).Error; err != nil {
					log.Fatalf("failed to clear %s: %v", table, err)
				}
			}
			fmt.Println("Cleared existing billing data")
		}

		businesses := []billing.Business{
			{Name: "Acme Studios", ContactEmail: "billing@acme.test", SubscriptionStatus: "active"},
			{Name: "Blauwe Tulp BV", ContactEmail: "finance@blauwetulp.test", SubscriptionStatus: "active"},
			{Name: "Corner Cafe", ContactEmail: "", SubscriptionStatus: "trialing"},
		}

		for i := range businesses {
			b := &businesses[i]

			var existing billing.Business
			err := db.Where("name = ?", b.Name).First(&existing).Error
			if err == nil {
				fmt.Printf("business %q already exists, skipping\n", b.Name)
				businesses[i] = existing
				continue
			}

			if err := db.Create(b).Error; err != nil {
				log.Fatalf("failed to seed business %q: %v", b.Name, err)
			}
			fmt.Printf("Seeded business %q\n", b.Name)
		}

		for i, b := range businesses {
			invoiceNumber := fmt.Sprintf("INV-2024-%03d-%s", i+1, strings.ToUpper(uuid.NewString()[:8]))

			var count int64
			db.Model(&billing.Invoice{}).Where("business_id = ?", b.ID).Count(&count)
			if count > 0 {
				fmt.Printf("business %q already has invoices, skipping\n", b.Name)
				continue
			}

			invoice := billing.Invoice{
				BusinessID:    b.ID,
				InvoiceNumber: invoiceNumber,
				Status:        billing.InvoiceStatusDraft,
				AmountDue:     decimal.New(int64((i+1)*2500), -2),
				Currency:      "eur",
			}
			if err := db.Create(&invoice).Error; err != nil {
				log.Fatalf("failed to seed invoice for %q: %v", b.Name, err)
			}
			fmt.Printf("Seeded draft invoice %s for %q\n", invoiceNumber, b.Name)
		}

		fmt.Println("Seeding complete")
	},
}
