// This file implements utilities for parsing and validating HTTP request data.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"ledger/internal/core"
)

const maxBodyBytes = 64 << 10

var monthPattern = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

// transactionRequest is the body of POST /transactions. Amount may be a JSON
// number or a string using a dot or comma decimal separator. An empty date
// defaults to today.
type transactionRequest struct {
	Description string          `json:"description"`
	Amount      json.RawMessage `json:"amount"`
	Category    string          `json:"category"`
	Type        string          `json:"type"`
	Date        string          `json:"date"`
	Notes       string          `json:"notes"`
}

// patchRequest is the body of PATCH /transactions/{id}. Absent fields are
// left unchanged.
type patchRequest struct {
	Description *string         `json:"description"`
	Amount      json.RawMessage `json:"amount"`
	Category    *string         `json:"category"`
	Type        *string         `json:"type"`
	Date        *string         `json:"date"`
	Notes       *string         `json:"notes"`
}

// decodeJSON reads a single JSON object from the body, rejecting unknown
// fields and bodies over maxBodyBytes.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("empty request body")
		}
		return fmt.Errorf("malformed JSON: %w", err)
	}
	if dec.More() {
		return errors.New("request body must contain a single JSON object")
	}
	return nil
}

func (req transactionRequest) toTransaction(today time.Time) (core.Transaction, error) {
	amount, err := parseAmountField(req.Amount)
	if err != nil {
		return core.Transaction{}, err
	}

	date := strings.TrimSpace(req.Date)
	if date == "" {
		date = today.Format(core.DateLayout)
	}

	t := core.Transaction{
		Description: sanitizeInput(req.Description),
		Amount:      amount,
		Category:    sanitizeInput(req.Category),
		Type:        core.TransactionType(strings.ToLower(strings.TrimSpace(req.Type))),
		Date:        date,
		Notes:       sanitizeInput(req.Notes),
	}
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	return t, nil
}

func (req patchRequest) toPatch() (core.Patch, error) {
	var p core.Patch
	if req.Description != nil {
		v := sanitizeInput(*req.Description)
		p.Description = &v
	}
	if len(req.Amount) > 0 {
		a, err := parseAmountField(req.Amount)
		if err != nil {
			return core.Patch{}, err
		}
		p.Amount = &a
	}
	if req.Category != nil {
		v := sanitizeInput(*req.Category)
		p.Category = &v
	}
	if req.Type != nil {
		v := core.TransactionType(strings.ToLower(strings.TrimSpace(*req.Type)))
		p.Type = &v
	}
	if req.Date != nil {
		v := strings.TrimSpace(*req.Date)
		p.Date = &v
	}
	if req.Notes != nil {
		v := sanitizeInput(*req.Notes)
		p.Notes = &v
	}
	if err := p.Validate(); err != nil {
		return core.Patch{}, err
	}
	return p, nil
}

// parseAmountField accepts a JSON number or string and returns a
// non-negative amount rounded to cents.
func parseAmountField(raw json.RawMessage) (float64, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, core.ErrInvalidAmount
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return 0, core.ErrInvalidAmount
		}
		s = n.String()
	}
	return core.ParseAmount(s)
}

// ParseListQuery extracts filter criteria and sort key from query values.
// A type of "all" or "" imposes no constraint; unknown sort keys fall back to
// newest first.
func ParseListQuery(query url.Values) (core.Criteria, core.SortKey, error) {
	var c core.Criteria

	switch typ := strings.ToLower(strings.TrimSpace(query.Get("type"))); typ {
	case "", "all":
	default:
		tt := core.TransactionType(typ)
		if err := tt.Validate(); err != nil {
			return core.Criteria{}, "", fmt.Errorf("invalid type %q", typ)
		}
		c.Type = tt
	}

	c.Category = strings.TrimSpace(query.Get("category"))

	if m := strings.TrimSpace(query.Get("month")); m != "" {
		if !monthPattern.MatchString(m) {
			return core.Criteria{}, "", fmt.Errorf("invalid month %q: want YYYY-MM", m)
		}
		c.Month = m
	}

	return c, core.ParseSortKey(strings.TrimSpace(query.Get("sort"))), nil
}

// parseID reads the {id} route variable.
func parseID(r *http.Request) (int64, error) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}

// parseConfirmation reads a boolean confirmation flag; anything but a
// parseable true counts as not confirmed.
func parseConfirmation(query url.Values, key string) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(query.Get(key)))
	return err == nil && v
}

// sanitizeInput removes control characters except tab, newline and
// carriage return, and trims surrounding whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
