// Package models provides the data structures of a keyword co-occurrence dataset.
// It defines the core domain models used throughout the application.
package models

import (
	"encoding/json"
	"time"
)

// Category groups keywords into research areas
type Category string

const (
	CategoryVirology     Category = "virology"
	CategoryMicrobiology Category = "microbiology"
	CategoryMethods      Category = "methods"
	CategoryEnvironment  Category = "environment"
	CategoryBiothreat    Category = "biothreat"
	CategoryOther        Category = "other"
)

type categoryInfo struct {
	label string
	color string
}

var categories = map[Category]categoryInfo{
	CategoryVirology:     {label: "Virology", color: "#e67e22"},
	CategoryMicrobiology: {label: "Microbiology", color: "#b8621b"},
	CategoryMethods:      {label: "Methods & Genomics", color: "#f39c12"},
	CategoryEnvironment:  {label: "Environment", color: "#8b4513"},
	CategoryBiothreat:    {label: "Biosecurity", color: "#f1c40f"},
	CategoryOther:        {label: "Other Topics", color: "#6b7280"},
}

// legendOrder is the order categories appear in legends
var legendOrder = []Category{
	CategoryVirology,
	CategoryMicrobiology,
	CategoryMethods,
	CategoryEnvironment,
	CategoryBiothreat,
	CategoryOther,
}

// Node represents a keyword in the network
type Node struct {
	ID       string   `json:"id" validate:"required"`
	Label    string   `json:"label"`
	Category Category `json:"category"`
	Count    int      `json:"count" validate:"gte=0"`
	Size     float64  `json:"size,omitempty" validate:"gte=0"`
}

// Edge represents a weighted co-occurrence between two keywords
type Edge struct {
	Source string  `json:"source" validate:"required"`
	Target string  `json:"target" validate:"required"`
	Weight float64 `json:"weight" validate:"gt=0"`
}

// Stats holds corpus-level figures shipped with the dataset
type Stats struct {
	TotalPublications int `json:"total_publications" validate:"gte=0"`

	// Extra keeps any other numeric or textual fields untouched
	Extra map[string]any `json:"-"`
}

// Dataset is the immutable document a network is built from
type Dataset struct {
	Nodes    []Node    `json:"nodes" validate:"dive"`
	Edges    []Edge    `json:"edges" validate:"dive"`
	Stats    Stats     `json:"stats"`
	Source   string    `json:"-"`
	LoadedAt time.Time `json:"-"`
}

// UnmarshalJSON decodes stats while preserving unknown fields
func (s *Stats) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	type plain Stats
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}

	delete(raw, "total_publications")
	if len(raw) > 0 {
		p.Extra = raw
	}
	*s = Stats(p)
	return nil
}

// MarshalJSON encodes stats including the extra fields
func (s Stats) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(s.Extra)+1)
	for k, v := range s.Extra {
		out[k] = v
	}
	out["total_publications"] = s.TotalPublications
	return json.Marshal(out)
}
