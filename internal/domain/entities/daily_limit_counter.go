package entities

import (
	"time"

	"github.com/google/uuid"

	"github.com/finboard/walletcore/internal/domain/valueobjects"
)

// DayKey is the calendar-day key of a daily limit counter, in the form
// "2006-01-02" (UTC). The counter resets implicitly when the key rolls
// over.
type DayKey string

// DayKeyFor returns the day key for a point in time.
func DayKeyFor(t time.Time) DayKey {
	return DayKey(t.UTC().Format("2006-01-02"))
}

// DailyLimitCounter accumulates the amount moved out of an account on a
// single day. It grows monotonically within the day and is incremented
// only when a transaction is confirmed; the reconciliation job rederives
// it from confirmed transactions when it drifts.
type DailyLimitCounter struct {
	accountID   uuid.UUID
	day         DayKey
	movedAmount valueobjects.Money
}

// NewDailyLimitCounter creates a counter row.
func NewDailyLimitCounter(accountID uuid.UUID, day DayKey, movedAmount valueobjects.Money) *DailyLimitCounter {
	return &DailyLimitCounter{accountID: accountID, day: day, movedAmount: movedAmount}
}

func (c *DailyLimitCounter) AccountID() uuid.UUID            { return c.accountID }
func (c *DailyLimitCounter) Day() DayKey                     { return c.day }
func (c *DailyLimitCounter) MovedAmount() valueobjects.Money { return c.movedAmount }
