// Package ledger applies simulated fills to the cash balance and the open
// position set.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"math"

	"copy-trade-bot-go/internal/models"

	"gorm.io/gorm"
)

var (
	ErrInvalidPrice  = errors.New("fill price must be positive")
	ErrInvalidAmount = errors.New("fill amount must be a non-negative number")
	ErrNoAccount     = errors.New("account not initialized")
)

// Fill is one simulated execution: Amount of cash spent at Price on the
// Outcome side of a market.
type Fill struct {
	MarketID string
	Question string
	Outcome  models.Outcome
	Price    float64
	Amount   float64
	Trader   string
}

// Validate checks the preconditions of a fill. A zero price would divide by zero.
func (f Fill) Validate() error {
	if math.IsNaN(f.Price) || math.IsInf(f.Price, 0) || f.Price <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidPrice, f.Price)
	}
	if math.IsNaN(f.Amount) || math.IsInf(f.Amount, 0) || f.Amount < 0 {
		return fmt.Errorf("%w: %v", ErrInvalidAmount, f.Amount)
	}
	return nil
}

// Ledger reads and mutates the account and positions.
type Ledger struct {
	db *gorm.DB
}

// New creates a ledger over db.
func New(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

// Balance returns the current cash balance.
func (l *Ledger) Balance(ctx context.Context) (float64, error) {
	var account models.Account
	res := l.db.WithContext(ctx).Where("id = ?", models.AccountID).Limit(1).Find(&account)
	if res.Error != nil {
		return 0, fmt.Errorf("could not get account: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return 0, ErrNoAccount
	}
	return account.Balance, nil
}

// Positions returns every open position in the order they were opened.
func (l *Ledger) Positions(ctx context.Context) ([]models.PortfolioPosition, error) {
	var positions []models.PortfolioPosition
	if err := l.db.WithContext(ctx).Order("created_at asc, market_id asc").Find(&positions).Error; err != nil {
		return nil, fmt.Errorf("could not list positions: %w", err)
	}
	return positions, nil
}

// Position returns the position on marketID, if one is open.
func (l *Ledger) Position(ctx context.Context, marketID string) (models.PortfolioPosition, bool, error) {
	return findPosition(l.db.WithContext(ctx), marketID)
}

func findPosition(tx *gorm.DB, marketID string) (models.PortfolioPosition, bool, error) {
	var pos models.PortfolioPosition
	res := tx.Where("market_id = ?", marketID).Limit(1).Find(&pos)
	if res.Error != nil {
		return models.PortfolioPosition{}, false, fmt.Errorf("could not get position %s: %w", marketID, res.Error)
	}
	return pos, res.RowsAffected > 0, nil
}

// ApplyFill debits the balance and upserts the position in one transaction.
func (l *Ledger) ApplyFill(ctx context.Context, f Fill) (pos models.PortfolioPosition, err error) {
	err = l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		pos, err = ApplyFillTx(tx, f)
		return err
	})
	return pos, err
}

// ApplyFillTx applies f inside an open transaction. On error nothing has been
// written by this call and the caller must roll back.
//
// The balance is debited by Amount with no solvency check. A new position
// gets shares = Amount/Price, avgPrice = Price, currentValue = Amount. An
// existing one accumulates shares and revalues at the latest price:
// currentValue = shares*Price + Amount. avgPrice and pnl are left as they are.
func ApplyFillTx(tx *gorm.DB, f Fill) (models.PortfolioPosition, error) {
	if err := f.Validate(); err != nil {
		return models.PortfolioPosition{}, err
	}

	res := tx.Model(&models.Account{}).
		Where("id = ?", models.AccountID).
		Update("balance", gorm.Expr("balance - ?", f.Amount))
	if res.Error != nil {
		return models.PortfolioPosition{}, fmt.Errorf("could not debit balance: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return models.PortfolioPosition{}, ErrNoAccount
	}

	pos, found, err := findPosition(tx, f.MarketID)
	if err != nil {
		return models.PortfolioPosition{}, err
	}

	bought := f.Amount / f.Price
	if !found {
		pos = models.PortfolioPosition{
			MarketID:     f.MarketID,
			Question:     f.Question,
			Outcome:      f.Outcome,
			Shares:       bought,
			AvgPrice:     f.Price,
			CurrentValue: f.Amount,
			PnL:          0,
			CopiedFrom:   f.Trader,
		}
		if err := tx.Create(&pos).Error; err != nil {
			return models.PortfolioPosition{}, fmt.Errorf("could not open position %s: %w", f.MarketID, err)
		}
		return pos, nil
	}

	pos.Shares += bought
	pos.CurrentValue = pos.Shares*f.Price + f.Amount
	err = tx.Model(&pos).Updates(map[string]any{
		"shares":        pos.Shares,
		"current_value": pos.CurrentValue,
	}).Error
	if err != nil {
		return models.PortfolioPosition{}, fmt.Errorf("could not update position %s: %w", f.MarketID, err)
	}
	return pos, nil
}
