package database

import (
	"errors"
	"fmt"

	"copy-trade-bot-go/internal/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// NewDatabase creates a new database connection and performs auto-migration.
// SQLite is held to a single connection so ":memory:" databases survive
// across calls and writers never see "database is locked".
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := AutoMigrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// AutoMigrate creates or updates the tables for all models.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.TraderProfile{},
		&models.Follow{},
		&models.TradeLogEntry{},
		&models.PortfolioPosition{},
		&models.Account{},
	); err != nil {
		return fmt.Errorf("failed to auto-migrate database: %w", err)
	}
	return nil
}

// Seed populates an empty database: the seed trader profiles, the account row
// with the initial balance, and the default follow set. Rows that already
// exist are left alone, so restarting never resets state.
func Seed(db *gorm.DB, traders []models.TraderProfile, initialBalance float64, follows []string) error {
	return db.Transaction(func(tx *gorm.DB) error {
		for i := range traders {
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&traders[i]).Error; err != nil {
				return fmt.Errorf("failed to seed trader '%s': %w", traders[i].ID, err)
			}
		}

		var account models.Account
		err := tx.First(&account, models.AccountID).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			account = models.Account{ID: models.AccountID, Balance: initialBalance}
			if err := tx.Create(&account).Error; err != nil {
				return fmt.Errorf("failed to create account: %w", err)
			}
			// Default follows only apply to a fresh database.
			for _, traderID := range follows {
				var count int64
				if err := tx.Model(&models.TraderProfile{}).Where("id = ?", traderID).Count(&count).Error; err != nil {
					return fmt.Errorf("failed to look up trader '%s': %w", traderID, err)
				}
				if count == 0 {
					continue
				}
				if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&models.Follow{TraderID: traderID}).Error; err != nil {
					return fmt.Errorf("failed to follow trader '%s': %w", traderID, err)
				}
			}
		case err != nil:
			return fmt.Errorf("failed to load account: %w", err)
		}
		return nil
	})
}
