// Package tradelog is the append-only record of decision cycles.
package tradelog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"copy-trade-bot-go/internal/id"
	"copy-trade-bot-go/internal/models"

	"gorm.io/gorm"
)

// ErrAlreadyWritten is returned when an entry that was already stored is appended again.
var ErrAlreadyWritten = errors.New("trade log entry already written")

// Log reads and appends trade log entries. It has no update or delete path.
type Log struct {
	db *gorm.DB
}

// New creates a trade log over db.
func New(db *gorm.DB) *Log {
	return &Log{db: db}
}

// Append stores e at the end of the log.
func (l *Log) Append(ctx context.Context, e *models.TradeLogEntry) error {
	return AppendTx(l.db.WithContext(ctx), e)
}

// AppendTx stores e using tx. Missing id and timestamp are filled in.
func AppendTx(tx *gorm.DB, e *models.TradeLogEntry) error {
	if e.Seq != 0 {
		return ErrAlreadyWritten
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	if e.ID == "" {
		e.ID = id.At(e.Timestamp)
	}
	if err := tx.Create(e).Error; err != nil {
		return fmt.Errorf("could not append trade log entry: %w", err)
	}
	return nil
}

// List returns every entry in creation order.
func (l *Log) List(ctx context.Context) ([]models.TradeLogEntry, error) {
	var entries []models.TradeLogEntry
	if err := l.db.WithContext(ctx).Order("seq asc").Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("could not list trade log: %w", err)
	}
	return entries, nil
}

// Recent returns the last n entries, oldest first.
func (l *Log) Recent(ctx context.Context, n int) ([]models.TradeLogEntry, error) {
	if n <= 0 {
		return []models.TradeLogEntry{}, nil
	}
	var entries []models.TradeLogEntry
	if err := l.db.WithContext(ctx).Order("seq desc").Limit(n).Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("could not list recent trade log: %w", err)
	}
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}

// Len returns the number of entries.
func (l *Log) Len(ctx context.Context) (int64, error) {
	var count int64
	if err := l.db.WithContext(ctx).Model(&models.TradeLogEntry{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("could not count trade log: %w", err)
	}
	return count, nil
}
