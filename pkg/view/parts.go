package view

import (
	"fmt"
	"strings"
	"time"

	"github.com/expr-lang/expr"
	"github.com/sahilm/fuzzy"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/Dicklesworthstone/parts_viewer/pkg/grouping"
	"github.com/Dicklesworthstone/parts_viewer/pkg/model"
)

// FilterMode selects how a part filter string is interpreted.
type FilterMode int

const (
	FilterSubstring FilterMode = iota // case-insensitive substring (default)
	FilterFuzzy                       // characters in order, like the selector popups
	FilterExpr                        // the whole filter is an expression over part fields
)

// String returns the config spelling of the mode
func (m FilterMode) String() string {
	switch m {
	case FilterFuzzy:
		return "fuzzy"
	case FilterExpr:
		return "expr"
	default:
		return "substring"
	}
}

// ParseFilterMode parses "substring", "fuzzy" or "expr".
func ParseFilterMode(s string) (FilterMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "substring":
		return FilterSubstring, nil
	case "fuzzy":
		return FilterFuzzy, nil
	case "expr", "expression":
		return FilterExpr, nil
	default:
		return FilterSubstring, fmt.Errorf("unknown filter mode %q (want substring, fuzzy or expr)", s)
	}
}

// PartMatcher returns the filter factory for parts. In substring mode a part
// matches when its part number, description or classification contains the
// filter, compared caselessly: both sides are lowered with the locale's rules
// (so Turkish dotted and dotless I behave the way a Turkish user expects) and
// then case folded (so "STRASSE" finds "straße"). Fuzzy mode matches the same
// three fields. Expr mode compiles the filter against PartEnv, e.g.
// "StockCount > 5 && Rotable"; only that mode can fail. The empty filter
// matches all in every mode.
func PartMatcher(mode FilterMode, tag language.Tag) MatcherFactory[model.Part] {
	return func(filter string) (MatchFunc[model.Part], error) {
		if filter == "" {
			return func(model.Part) bool { return true }, nil
		}
		switch mode {
		case FilterExpr:
			return exprMatcher(filter)
		case FilterFuzzy:
			return fuzzyMatcher(filter), nil
		default:
			return substringMatcher(filter, tag), nil
		}
	}
}

// caseless maps s to the form substring matching compares.
func caseless(lower, fold cases.Caser, s string) string {
	return fold.String(lower.String(s))
}

func substringMatcher(filter string, tag language.Tag) MatchFunc[model.Part] {
	lower, fold := cases.Lower(tag), cases.Fold()
	needle := caseless(lower, fold, filter)
	return func(p model.Part) bool {
		for _, field := range [...]string{p.PartNo, p.Description, p.Classification} {
			if strings.Contains(caseless(lower, fold, field), needle) {
				return true
			}
		}
		return false
	}
}

func fuzzyMatcher(filter string) MatchFunc[model.Part] {
	return func(p model.Part) bool {
		return len(fuzzy.Find(filter, []string{p.PartNo, p.Description, p.Classification})) > 0
	}
}

// PartEnv is the environment expression filters are evaluated against.
type PartEnv struct {
	ID             int64
	PartNo         string
	Description    string
	Classification string
	Model          string
	HasModel       bool
	Unit           string
	Rotable        bool
	StockCount     int
	CreatedAt      time.Time
}

// NewPartEnv exposes p's fields to expression filters.
func NewPartEnv(p model.Part) PartEnv {
	return PartEnv{
		ID:             p.ID,
		PartNo:         p.PartNo,
		Description:    p.Description,
		Classification: p.Classification,
		Model:          p.ModelName(),
		HasModel:       p.HasModel(),
		Unit:           p.Unit(),
		Rotable:        p.Rotable(),
		StockCount:     p.StockCount,
		CreatedAt:      p.CreatedAt,
	}
}

func exprMatcher(code string) (MatchFunc[model.Part], error) {
	program, err := expr.Compile(code, expr.Env(PartEnv{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("invalid filter expression: %w", err)
	}
	return func(p model.Part) bool {
		out, err := expr.Run(program, NewPartEnv(p))
		if err != nil {
			return false
		}
		ok, _ := out.(bool)
		return ok
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// GROUPING LEVELS
// ══════════════════════════════════════════════════════════════════════════════

// ByModel groups parts by their associated model. Parts without a model form
// their own "(no model)" group.
func ByModel() grouping.Descriptor[model.Part] {
	return grouping.Descriptor[model.Part]{
		Name:    "Model",
		Missing: "(no model)",
		Key: func(p model.Part) (string, bool) {
			return p.ModelName(), p.HasModel()
		},
	}
}

// ByClassification groups parts by classification label.
func ByClassification() grouping.Descriptor[model.Part] {
	return grouping.Descriptor[model.Part]{
		Name:    "Classification",
		Missing: "(unclassified)",
		Key: func(p model.Part) (string, bool) {
			return p.Classification, p.Classification != ""
		},
	}
}

// ByUnit groups parts by unit of measure.
func ByUnit() grouping.Descriptor[model.Part] {
	return grouping.Descriptor[model.Part]{
		Name:    "Unit",
		Missing: "(no unit)",
		Key: func(p model.Part) (string, bool) {
			return p.Unit(), p.UnitOfMeasure != nil
		},
	}
}

// ByRotable groups parts into rotable and expendable.
func ByRotable() grouping.Descriptor[model.Part] {
	return grouping.Descriptor[model.Part]{
		Name:    "Rotable",
		Missing: "(unknown)",
		Key: func(p model.Part) (string, bool) {
			if p.IsRotable == nil {
				return "", false
			}
			if *p.IsRotable {
				return "Rotable", true
			}
			return "Expendable", true
		},
	}
}

// PartDescriptor looks up a grouping level by its config name.
func PartDescriptor(name string) (grouping.Descriptor[model.Part], error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "model":
		return ByModel(), nil
	case "classification", "class":
		return ByClassification(), nil
	case "unit", "uom":
		return ByUnit(), nil
	case "rotable":
		return ByRotable(), nil
	default:
		return grouping.Descriptor[model.Part]{}, fmt.Errorf("unknown group level %q", name)
	}
}

// PartDescriptors resolves a list of config names, in order.
func PartDescriptors(names []string) ([]grouping.Descriptor[model.Part], error) {
	descs := make([]grouping.Descriptor[model.Part], 0, len(names))
	for _, name := range names {
		d, err := PartDescriptor(name)
		if err != nil {
			return nil, err
		}
		descs = append(descs, d)
	}
	return descs, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// SORTING
// ══════════════════════════════════════════════════════════════════════════════

// SortKeys lists the part orderings in the order the UI cycles through them.
var SortKeys = []string{"part_no", "description", "created", "stock"}

// PartSort returns the ordering for a sort key. Ties fall back to part number.
func PartSort(key string) (func(a, b model.Part) bool, error) {
	switch key {
	case "", "part_no":
		return func(a, b model.Part) bool { return a.PartNo < b.PartNo }, nil
	case "description":
		return func(a, b model.Part) bool {
			if a.Description != b.Description {
				return a.Description < b.Description
			}
			return a.PartNo < b.PartNo
		}, nil
	case "created":
		return func(a, b model.Part) bool {
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.After(b.CreatedAt)
			}
			return a.PartNo < b.PartNo
		}, nil
	case "stock":
		return func(a, b model.Part) bool {
			if a.StockCount != b.StockCount {
				return a.StockCount > b.StockCount
			}
			return a.PartNo < b.PartNo
		}, nil
	default:
		return nil, fmt.Errorf("unknown sort key %q", key)
	}
}

// NextSortKey returns the key after current in SortKeys, wrapping around.
func NextSortKey(current string) string {
	for i, k := range SortKeys {
		if k == current {
			return SortKeys[(i+1)%len(SortKeys)]
		}
	}
	return SortKeys[0]
}
