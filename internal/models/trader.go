package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// TraderProfile is a trader that can be followed.
// Rank orders the registry; higher ranks are listed first.
type TraderProfile struct {
	ID        string         `gorm:"primaryKey" json:"id"`
	Name      string         `gorm:"not null" json:"name"`
	Address   string         `gorm:"not null" json:"address"`
	PnL       float64        `json:"pnl"`
	WinRate   float64        `json:"winRate"`
	Volume    string         `json:"volume"`
	Followers int            `json:"followers"`
	Tags      datatypes.JSON `json:"tags"`
	IsHot     bool           `json:"isHot"`
	Rank      int64          `gorm:"column:sort_rank;index" json:"-"`
	CreatedAt time.Time      `json:"createdAt"`
}

// NewTags encodes a tag set for storage. Duplicates are dropped, order kept.
func NewTags(tags ...string) datatypes.JSON {
	seen := make(map[string]struct{}, len(tags))
	unique := make([]string, 0, len(tags))
	for _, tag := range tags {
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		unique = append(unique, tag)
	}
	raw, _ := json.Marshal(unique)
	return datatypes.JSON(raw)
}

// TagList decodes the stored tag set.
func (t TraderProfile) TagList() []string {
	var tags []string
	if len(t.Tags) == 0 {
		return tags
	}
	_ = json.Unmarshal(t.Tags, &tags)
	return tags
}

// Follow is one member of the follow set.
type Follow struct {
	Seq       uint      `gorm:"primaryKey;autoIncrement"`
	TraderID  string    `gorm:"uniqueIndex;not null"`
	CreatedAt time.Time
}
