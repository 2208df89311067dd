package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var ErrInvalidDirection = errors.New("invalid direction")

type Direction string

const (
	DirectionAbove Direction = "above"
	DirectionBelow Direction = "below"
)

// ParseDirection accepts the words above/below and the comparator aliases
// >, >=, <, <=.
func ParseDirection(input string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "above", ">", ">=":
		return DirectionAbove, nil
	case "below", "<", "<=":
		return DirectionBelow, nil
	default:
		return "", ErrInvalidDirection
	}
}

func (d Direction) Valid() bool {
	return d == DirectionAbove || d == DirectionBelow
}

// PriceAlert is identified by (UserID, Symbol); at most one is active per pair.
type PriceAlert struct {
	UserID      int64     `json:"userId"`
	Symbol      string    `json:"symbol"`
	TargetPrice float64   `json:"targetPrice"`
	Direction   Direction `json:"direction"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Matches reports whether price satisfies the alert. Both boundaries are
// inclusive: an alert at exactly the target fires.
func (a PriceAlert) Matches(price float64) bool {
	cmp := decimal.NewFromFloat(price).Cmp(decimal.NewFromFloat(a.TargetPrice))
	switch a.Direction {
	case DirectionAbove:
		return cmp >= 0
	case DirectionBelow:
		return cmp <= 0
	default:
		return false
	}
}

// Trigger is handed to subscribers when an alert matches.
type Trigger struct {
	Symbol      string
	Price       float64
	Alert       PriceAlert
	Snapshot    PriceSnapshot
	TriggeredAt time.Time
}
