package models

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultHistoryLimit is the page size when none is requested
	DefaultHistoryLimit = 10
	// MaxHistoryLimit caps the page size
	MaxHistoryLimit = 100
)

// CalculationRecord is one persisted calculation of an authenticated user
type CalculationRecord struct {
	ID        string          `json:"id" db:"id"`
	UserID    string          `json:"userId" db:"user_id"`
	Type      TaxType         `json:"type" db:"type"`
	Input     json.RawMessage `json:"input" db:"input"`
	Result    json.RawMessage `json:"result" db:"result"`
	CreatedAt time.Time       `json:"createdAt" db:"created_at"`
}

// NewCalculationRecord serializes an input/result pair into a record
func NewCalculationRecord(userID string, input CalculationInput, result CalculationResult) (*CalculationRecord, error) {
	rawInput, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("failed to encode input: %w", err)
	}
	rawResult, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}

	return &CalculationRecord{
		ID:        uuid.New().String(),
		UserID:    userID,
		Type:      result.TaxType(),
		Input:     rawInput,
		Result:    rawResult,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// Validate validates the record before it is stored
func (r *CalculationRecord) Validate() error {
	if err := ValidateRequired(r.UserID, "userId"); err != nil {
		return err
	}
	if !r.Type.IsValid() {
		return NewInvalidInputError("type", r.Type, "is not a known tax type")
	}
	if !json.Valid(r.Input) {
		return NewInvalidInputError("input", nil, "must be valid JSON")
	}
	if !json.Valid(r.Result) {
		return NewInvalidInputError("result", nil, "must be valid JSON")
	}
	return nil
}

// HeadlineAmount extracts the headline figure from the stored result JSON.
// It returns 0 when the result carries neither totalTax nor vatAmount.
func (r *CalculationRecord) HeadlineAmount() float64 {
	var amounts struct {
		TotalTax  *float64 `json:"totalTax"`
		VATAmount *float64 `json:"vatAmount"`
	}
	if err := json.Unmarshal(r.Result, &amounts); err != nil {
		return 0
	}
	if amounts.TotalTax != nil {
		return *amounts.TotalTax
	}
	if amounts.VATAmount != nil {
		return *amounts.VATAmount
	}
	return 0
}

// HistoryQuery selects one page of a user's history, newest first
type HistoryQuery struct {
	UserID string
	Limit  int
	Cursor *HistoryCursor
}

// HistoryPage is one page of history
type HistoryPage struct {
	Items      []*CalculationRecord `json:"items"`
	NextCursor string               `json:"nextCursor,omitempty"`
}

// HistoryCursor marks the last record of a page. Records strictly older
// than (CreatedAt, ID) follow.
type HistoryCursor struct {
	CreatedAt time.Time
	ID        string
}

// NormalizeHistoryLimit applies the default and the maximum page size
func NormalizeHistoryLimit(limit int) int {
	if limit <= 0 {
		return DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		return MaxHistoryLimit
	}
	return limit
}

// Encode returns the opaque string form of the cursor
func (c HistoryCursor) Encode() string {
	raw := strconv.FormatInt(c.CreatedAt.UnixNano(), 10) + "|" + c.ID
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// DecodeHistoryCursor parses a cursor produced by Encode
func DecodeHistoryCursor(s string) (*HistoryCursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, NewInvalidInputError("cursor", s, "is malformed")
	}

	parts := strings.SplitN(string(raw), "|", 2)
	if len(parts) != 2 || parts[1] == "" {
		return nil, NewInvalidInputError("cursor", s, "is malformed")
	}

	nanos, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return nil, NewInvalidInputError("cursor", s, "is malformed")
	}

	return &HistoryCursor{CreatedAt: time.Unix(0, nanos).UTC(), ID: parts[1]}, nil
}
