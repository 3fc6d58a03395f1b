package model

import (
	"fmt"
	"time"
)

// Part represents one inventory part record as loaded from storage.
// Parts are produced once by a fetch and treated as read-only afterwards.
type Part struct {
	ID             int64     `json:"id"`
	PartNo         string    `json:"part_no"`
	Description    string    `json:"description"`
	Classification string    `json:"classification"`
	IsRotable      *bool     `json:"is_rotable,omitempty"`
	UnitOfMeasure  *string   `json:"unit_of_measure,omitempty"`
	Model          *string   `json:"model,omitempty"`
	StockCount     int       `json:"stock_count,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Clone creates a deep copy of the part
func (p Part) Clone() Part {
	clone := p

	if p.IsRotable != nil {
		v := *p.IsRotable
		clone.IsRotable = &v
	}
	if p.UnitOfMeasure != nil {
		v := *p.UnitOfMeasure
		clone.UnitOfMeasure = &v
	}
	if p.Model != nil {
		v := *p.Model
		clone.Model = &v
	}

	return clone
}

// Validate checks if the part data is logically valid
func (p *Part) Validate() error {
	if p.PartNo == "" {
		return fmt.Errorf("part %d: part number cannot be empty", p.ID)
	}
	if p.StockCount < 0 {
		return fmt.Errorf("part %s: stock count cannot be negative (%d)", p.PartNo, p.StockCount)
	}
	return nil
}

// ModelName returns the associated model, or "" when the part has none.
func (p Part) ModelName() string {
	if p.Model == nil {
		return ""
	}
	return *p.Model
}

// HasModel reports whether the part is associated with a model.
func (p Part) HasModel() bool {
	return p.Model != nil
}

// Unit returns the unit of measure, or "" when unknown.
func (p Part) Unit() string {
	if p.UnitOfMeasure == nil {
		return ""
	}
	return *p.UnitOfMeasure
}

// Rotable reports the rotable flag, treating an unknown flag as false.
func (p Part) Rotable() bool {
	return p.IsRotable != nil && *p.IsRotable
}

// Ptr returns a pointer to v. Handy for building parts with nullable fields.
func Ptr[T any](v T) *T {
	return &v
}
