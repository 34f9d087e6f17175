package rest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"kasa/internal/core"
)

// looseID accepts an id sent either as a JSON number or as a numeric string.
type looseID int64

func (id *looseID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	s := strings.Trim(string(b), `"`)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("parse id %s: %w", b, err)
	}
	*id = looseID(v)
	return nil
}

// looseTime accepts any date shape parseTime knows. Other values, including
// non-strings, decode to the zero time.
type looseTime time.Time

func (t *looseTime) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*t = looseTime(parseTime(s))
	}
	return nil
}

type wireCategory struct {
	ID             looseID `json:"id"`
	Name           string  `json:"name"`
	Type           string  `json:"type"`
	Color          string  `json:"color"`
	IsDefault      bool    `json:"isDefault"`
	IsDefaultSnake bool    `json:"is_default"`
	IsDeleted      bool    `json:"isDeleted"`
	IsDeletedSnake bool    `json:"is_deleted"`
	CreatedAt      string  `json:"createdAt"`
	CreatedAtSnake string  `json:"created_at"`
}

func (w wireCategory) toCore() core.Category {
	return core.Category{
		ID:        int64(w.ID),
		Name:      strings.TrimSpace(w.Name),
		Type:      core.CategoryType(strings.ToUpper(strings.TrimSpace(w.Type))),
		Color:     w.Color,
		IsDefault: w.IsDefault || w.IsDefaultSnake,
		IsDeleted: w.IsDeleted || w.IsDeletedSnake,
		CreatedAt: parseTime(firstNonEmpty(w.CreatedAt, w.CreatedAtSnake)),
	}
}

// wireTransaction carries the category reference under any of the names the
// backend has used: categoryId, category_id or a nested category object.
// Other fields such as the amount are not decoded.
type wireTransaction struct {
	ID              looseID     `json:"id"`
	CategoryID      looseID     `json:"categoryId"`
	CategoryIDSnake looseID     `json:"category_id"`
	Category        *struct {
		ID looseID `json:"id"`
	} `json:"category"`
	Date looseTime `json:"date"`
}

func (w wireTransaction) toCore() core.Transaction {
	catID := int64(w.CategoryID)
	if catID == 0 {
		catID = int64(w.CategoryIDSnake)
	}
	if catID == 0 && w.Category != nil {
		catID = int64(w.Category.ID)
	}
	return core.Transaction{
		ID:         int64(w.ID),
		CategoryID: catID,
		Date:       time.Time(w.Date),
	}
}

type wireCategoryInput struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Color string `json:"color,omitempty"`
}

// wireError is the error body the backend returns on 4xx responses.
type wireError struct {
	Message string `json:"message"`
	Error   string `json:"error"`
	Field   string `json:"field"`
}

func (w wireError) text() string {
	return firstNonEmpty(w.Message, w.Error)
}

var timeLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"}

// parseTime accepts RFC 3339, a local timestamp without zone, or a plain
// date. Anything else yields the zero time.
func parseTime(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
