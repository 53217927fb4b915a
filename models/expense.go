package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ErrAmountPrecision reports an amount that cannot be stored exactly in the
// decimal(20,2) column.
var ErrAmountPrecision = errors.New("amount not representable with 2 decimal places")

// maxAmountIntegerDigits leaves 2 of the 20 column digits for cents.
const maxAmountIntegerDigits = 18

// Expense represents a single tagged expense belonging to a user.
type Expense struct {
	ID          uint `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
	UserID      uint            `gorm:"index;not null" json:"user_id"`
	Description string          `gorm:"size:255" json:"description"`
	SpentAt     time.Time       `gorm:"not null" json:"spent_at"`
	Amount      decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"amount"`
	Tag         Tag             `gorm:"size:2;not null;index" json:"tag"`
}

// Validate checks the tag against the process-wide table and the amount
// against the column precision. Out-of-set codes are rejected here, before
// the row ever reaches the database, and are never coerced to a default.
func (e *Expense) Validate() error {
	if _, err := Tags.Validate(e.Tag); err != nil {
		return err
	}
	if !e.Amount.Equal(e.Amount.Round(2)) {
		return fmt.Errorf("%w: %s", ErrAmountPrecision, e.Amount)
	}
	if len(e.Amount.Abs().Truncate(0).String()) > maxAmountIntegerDigits {
		return fmt.Errorf("%w: %s exceeds %d integer digits", ErrAmountPrecision, e.Amount, maxAmountIntegerDigits)
	}
	return nil
}

// BeforeSave runs on every insert and update.
func (e *Expense) BeforeSave(tx *gorm.DB) error {
	return e.Validate()
}

// BeforeCreate fills the spend timestamp when the caller left it unset.
func (e *Expense) BeforeCreate(tx *gorm.DB) error {
	if e.SpentAt.IsZero() {
		e.SpentAt = time.Now()
	}
	return nil
}

// TagLabel resolves the stored code to its symbolic name.
func (e *Expense) TagLabel() (string, error) {
	return Tags.LabelFor(e.Tag)
}
