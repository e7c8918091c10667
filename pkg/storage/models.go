package storage

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// RuleRow is one persisted reply rule. Position keeps the guild's
// evaluation order.
type RuleRow struct {
	ID             string    `gorm:"type:varchar(50);primaryKey"                        json:"id"`
	GuildID        uint64    `gorm:"not null;index:idx_rr_guild_pos,priority:1"         json:"guild_id"`
	Position       int       `gorm:"not null;index:idx_rr_guild_pos,priority:2"         json:"position"`
	RuleID         string    `gorm:"type:varchar(36);not null"                          json:"rule_id"`
	Trigger        *string   `gorm:"type:text"                                          json:"trigger"`
	Reply          string    `gorm:"type:text;not null"                                 json:"reply"`
	MatchCondition string    `gorm:"type:varchar(20);not null"                          json:"match_condition"`
	UserIDs        IDList    `gorm:"type:text"                                          json:"user_ids"`
	ChannelIDs     IDList    `gorm:"type:text"                                          json:"channel_ids"`
	CreatedAt      time.Time `json:"created_at"`
}

func (RuleRow) TableName() string { return "reply_rules" }

// IDList is a custom GORM type storing snowflake ids as a JSON array.
type IDList []uint64

func (l IDList) Value() (driver.Value, error) {
	raw, err := json.Marshal([]uint64(l))
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

func (l *IDList) Scan(src any) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, (*[]uint64)(l))
	case string:
		return json.Unmarshal([]byte(v), (*[]uint64)(l))
	case nil:
		*l = nil
		return nil
	default:
		return fmt.Errorf("scan IDList: unsupported type %T", src)
	}
}
