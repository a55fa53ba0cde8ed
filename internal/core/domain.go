package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

// MaxDescriptionLen is the longest accepted description, in bytes.
const MaxDescriptionLen = 200

// DateLayout is the stored date format (day granularity, no time component).
const DateLayout = "2006-01-02"

type (
	TransactionType string

	// Transaction is a single recorded income or expense event.
	// Amount is always a magnitude; the sign is carried by Type.
	Transaction struct {
		ID          int64           `json:"id"`
		Description string          `json:"description"`
		Amount      float64         `json:"amount"`
		Category    string          `json:"category"`
		Type        TransactionType `json:"type"`
		Date        string          `json:"date"`
		Notes       string          `json:"notes,omitempty"`
	}

	// Patch is a partial update. Nil fields are left untouched.
	Patch struct {
		Description *string          `json:"description,omitempty"`
		Amount      *float64         `json:"amount,omitempty"`
		Category    *string          `json:"category,omitempty"`
		Type        *TransactionType `json:"type,omitempty"`
		Date        *string          `json:"date,omitempty"`
		Notes       *string          `json:"notes,omitempty"`
	}
)

var (
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidType        = errors.New("invalid transaction type")
	ErrInvalidDate        = errors.New("invalid date")
	ErrEmptyDescription   = errors.New("empty description")
	ErrDescriptionTooLong = errors.New("description too long (max 200 characters)")
	ErrEmptyPatch         = errors.New("empty patch")
)

// IsIncome reports whether t is exactly "income". Every other value,
// including unknown ones, is classified as an expense.
func (t TransactionType) IsIncome() bool {
	return t == Income
}

func (t TransactionType) Validate() error {
	switch t {
	case Income, Expense:
		return nil
	default:
		return ErrInvalidType
	}
}

func validateAmount(a float64) error {
	if !IsFinite(a) || a < 0 {
		return ErrInvalidAmount
	}
	return nil
}

func validateDescription(d string) error {
	if strings.TrimSpace(d) == "" {
		return ErrEmptyDescription
	}
	if len(d) > MaxDescriptionLen {
		return ErrDescriptionTooLong
	}
	return nil
}

func validateDate(d string) error {
	if _, err := time.Parse(DateLayout, d); err != nil {
		return ErrInvalidDate
	}
	return nil
}

func (t Transaction) Validate() error {
	if err := validateDescription(t.Description); err != nil {
		return err
	}
	if err := validateAmount(t.Amount); err != nil {
		return err
	}
	if err := t.Type.Validate(); err != nil {
		return err
	}
	return validateDate(t.Date)
}

// Month returns the year-month grouping key of the transaction date.
func (t Transaction) Month() string {
	return MonthKey(t.Date)
}

// MonthKey returns the first 7 characters of a date string. Malformed dates
// are not rejected: they group under whatever prefix they yield.
func MonthKey(date string) string {
	if len(date) < 7 {
		return date
	}
	return date[:7]
}

// IsEmpty reports whether the patch carries no fields at all.
func (p Patch) IsEmpty() bool {
	return p.Description == nil && p.Amount == nil && p.Category == nil &&
		p.Type == nil && p.Date == nil && p.Notes == nil
}

// Validate checks the supplied fields against the rules of a full record.
func (p Patch) Validate() error {
	if p.IsEmpty() {
		return ErrEmptyPatch
	}
	if p.Description != nil {
		if err := validateDescription(*p.Description); err != nil {
			return err
		}
	}
	if p.Amount != nil {
		if err := validateAmount(*p.Amount); err != nil {
			return err
		}
	}
	if p.Type != nil {
		if err := p.Type.Validate(); err != nil {
			return err
		}
	}
	if p.Date != nil {
		if err := validateDate(*p.Date); err != nil {
			return err
		}
	}
	return nil
}

// Apply overlays the supplied fields on t. The ID is never changed.
func (p Patch) Apply(t Transaction) Transaction {
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Amount != nil {
		t.Amount = *p.Amount
	}
	if p.Category != nil {
		t.Category = *p.Category
	}
	if p.Type != nil {
		t.Type = *p.Type
	}
	if p.Date != nil {
		t.Date = *p.Date
	}
	if p.Notes != nil {
		t.Notes = *p.Notes
	}
	return t
}
