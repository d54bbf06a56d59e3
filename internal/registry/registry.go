// Package registry holds the known trader profiles and the follow set.
package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"copy-trade-bot-go/internal/id"
	"copy-trade-bot-go/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrEmptyName      = errors.New("trader name is required")
	ErrEmptyAddress   = errors.New("trader address is required")
	ErrTraderNotFound = errors.New("trader not found")
)

// CustomTag is the only tag given to user-added traders.
const CustomTag = "NEW"

// Registry is the trader registry backed by the database.
// Follow, Unfollow and AddCustomTrader are its only mutating operations;
// profile statistics are never recomputed here.
type Registry struct {
	db    *gorm.DB
	newID func() string
}

// New creates a registry over db.
func New(db *gorm.DB) *Registry {
	return &Registry{
		db:    db,
		newID: func() string { return id.WithPrefix("custom") },
	}
}

// Traders returns every profile, most recently added first.
func (r *Registry) Traders(ctx context.Context) ([]models.TraderProfile, error) {
	var traders []models.TraderProfile
	if err := r.db.WithContext(ctx).Order("sort_rank desc").Find(&traders).Error; err != nil {
		return nil, fmt.Errorf("could not list traders: %w", err)
	}
	return traders, nil
}

// Trader looks up one profile.
func (r *Registry) Trader(ctx context.Context, traderID string) (models.TraderProfile, error) {
	var trader models.TraderProfile
	res := r.db.WithContext(ctx).Where("id = ?", traderID).Limit(1).Find(&trader)
	if res.Error != nil {
		return models.TraderProfile{}, fmt.Errorf("could not get trader %s: %w", traderID, res.Error)
	}
	if res.RowsAffected == 0 {
		return models.TraderProfile{}, fmt.Errorf("%w: %s", ErrTraderNotFound, traderID)
	}
	return trader, nil
}

// FollowedIDs returns the follow set in the order traders were followed.
func (r *Registry) FollowedIDs(ctx context.Context) ([]string, error) {
	var ids []string
	if err := r.db.WithContext(ctx).Model(&models.Follow{}).Order("seq asc").Pluck("trader_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("could not list follows: %w", err)
	}
	return ids, nil
}

// FollowedTraders returns the profiles in the follow set, in follow order.
func (r *Registry) FollowedTraders(ctx context.Context) ([]models.TraderProfile, error) {
	var traders []models.TraderProfile
	err := r.db.WithContext(ctx).
		Joins("JOIN follows ON follows.trader_id = trader_profiles.id").
		Order("follows.seq asc").
		Find(&traders).Error
	if err != nil {
		return nil, fmt.Errorf("could not list followed traders: %w", err)
	}
	return traders, nil
}

// IsFollowed reports whether traderID is in the follow set.
func (r *Registry) IsFollowed(ctx context.Context, traderID string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Follow{}).Where("trader_id = ?", traderID).Count(&count).Error; err != nil {
		return false, fmt.Errorf("could not check follow for %s: %w", traderID, err)
	}
	return count > 0, nil
}

// Follow adds traderID to the follow set. It is idempotent and a no-op for
// ids that do not reference a known profile. changed reports whether the set grew.
func (r *Registry) Follow(ctx context.Context, traderID string) (changed bool, err error) {
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		changed, err = followTx(tx, traderID)
		return err
	})
	return changed, err
}

func followTx(tx *gorm.DB, traderID string) (bool, error) {
	var count int64
	if err := tx.Model(&models.TraderProfile{}).Where("id = ?", traderID).Count(&count).Error; err != nil {
		return false, fmt.Errorf("could not look up trader %s: %w", traderID, err)
	}
	if count == 0 {
		return false, nil
	}
	res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&models.Follow{TraderID: traderID})
	if res.Error != nil {
		return false, fmt.Errorf("could not follow %s: %w", traderID, res.Error)
	}
	return res.RowsAffected > 0, nil
}

// Unfollow removes traderID from the follow set; absent ids are a no-op.
func (r *Registry) Unfollow(ctx context.Context, traderID string) (changed bool, err error) {
	res := r.db.WithContext(ctx).Where("trader_id = ?", traderID).Delete(&models.Follow{})
	if res.Error != nil {
		return false, fmt.Errorf("could not unfollow %s: %w", traderID, res.Error)
	}
	return res.RowsAffected > 0, nil
}

// Toggle follows traderID when it is not followed and unfollows it otherwise.
// It returns whether the trader is followed afterwards.
func (r *Registry) Toggle(ctx context.Context, traderID string) (bool, error) {
	followed, err := r.IsFollowed(ctx, traderID)
	if err != nil {
		return false, err
	}
	if followed {
		_, err = r.Unfollow(ctx, traderID)
		return false, err
	}
	changed, err := r.Follow(ctx, traderID)
	return changed, err
}

// AddCustomTrader creates a profile for a user-supplied wallet, places it at
// the front of the registry and follows it. Blank name or address is rejected
// and nothing is written.
func (r *Registry) AddCustomTrader(ctx context.Context, name, address string) (models.TraderProfile, error) {
	name = strings.TrimSpace(name)
	address = strings.TrimSpace(address)
	if name == "" {
		return models.TraderProfile{}, ErrEmptyName
	}
	if address == "" {
		return models.TraderProfile{}, ErrEmptyAddress
	}

	trader := models.TraderProfile{
		ID:      r.newID(),
		Name:    name,
		Address: address,
		Volume:  "$0",
		Tags:    models.NewTags(CustomTag),
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var maxRank sql.NullInt64
		if err := tx.Model(&models.TraderProfile{}).Select("MAX(sort_rank)").Row().Scan(&maxRank); err != nil {
			return fmt.Errorf("could not read registry order: %w", err)
		}
		if maxRank.Valid {
			trader.Rank = maxRank.Int64 + 1
		}
		if err := tx.Create(&trader).Error; err != nil {
			return fmt.Errorf("could not create trader: %w", err)
		}
		_, err := followTx(tx, trader.ID)
		return err
	})
	if err != nil {
		return models.TraderProfile{}, err
	}
	return trader, nil
}
