package database

import (
	"errors"
	"fmt"

	"semzo-prive/internal/domain/billing"
	"semzo-prive/internal/domain/membership"
	"semzo-prive/internal/domain/ops"
	"semzo-prive/internal/domain/plans"
	"semzo-prive/internal/domain/users"
	"semzo-prive/internal/domain/verification"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Open connects to Postgres. The handle is created once per process and injected.
func Open(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		return nil, errors.New("DB_URL not set")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// openIntentIndex enforces at most one checkout-driving intent per user.
const openIntentIndex = `CREATE UNIQUE INDEX IF NOT EXISTS ux_membership_intents_user_open
	ON membership_intents (user_id)
	WHERE status IN ('pending', 'paid_pending_verification')`

// Migrate creates/updates the schema and seeds the default catalog. Safe to run repeatedly.
func Migrate(db *gorm.DB, currency string) error {
	if err := db.AutoMigrate(
		&users.Profile{},
		&membership.Intent{},
		&verification.IdentityVerification{},
		&plans.Plan{},
		&billing.Payment{},
		&billing.Coupon{},
		&ops.AdminAlert{},
		&ops.WebhookEvent{},
	); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}

	if err := db.Exec(openIntentIndex).Error; err != nil {
		return fmt.Errorf("create open intent index: %w", err)
	}

	catalog := plans.DefaultCatalog(currency)
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "membership_type"}, {Name: "billing_cycle"}},
		DoNothing: true,
	}).Create(&catalog).Error; err != nil {
		return fmt.Errorf("seed catalog: %w", err)
	}
	return nil
}
