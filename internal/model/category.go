// Package model defines the core domain models used throughout the application.
package model

import "strings"

// CategoryLevel distinguishes the two levels of the category hierarchy.
type CategoryLevel string

const (
	// LevelGroup is a top-level category group (e.g. "Dining", CG800).
	LevelGroup CategoryLevel = "group"
	// LevelSubcategory is a leaf under a group (e.g. "Restaurants", C803).
	LevelSubcategory CategoryLevel = "subcategory"
)

// Confidence is a discretized match-quality bucket derived from similarity
// distance. It is not a probability.
type Confidence string

// Confidence buckets.
const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Confidence distance thresholds, calibrated for the multilingual embedding
// space the category index is built with. Configuration constants, not
// universal ones.
const (
	HighConfidenceMaxDistance   = 0.4
	MediumConfidenceMaxDistance = 0.6
)

// ConfidenceForDistance maps a similarity distance to a confidence bucket.
func ConfidenceForDistance(distance float64) Confidence {
	switch {
	case distance < HighConfidenceMaxDistance:
		return ConfidenceHigh
	case distance <= MediumConfidenceMaxDistance:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// CategoryRecord is one entry of the category knowledge base. Records are
// created at index-build time and immutable thereafter.
type CategoryRecord struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Level       CategoryLevel `json:"level"`
	ParentID    string        `json:"parent_id,omitempty"`
	ParentName  string        `json:"parent_name,omitempty"`
	Description string        `json:"description"`
}

// Group and subcategory ids live in disjoint namespaces distinguished by
// prefix; downstream query construction branches on it.
const (
	groupIDPrefix       = "CG"
	subcategoryIDPrefix = "C"
)

// LevelForID derives the hierarchy level from a category id's prefix.
func LevelForID(id string) CategoryLevel {
	if strings.HasPrefix(id, groupIDPrefix) {
		return LevelGroup
	}
	return LevelSubcategory
}

// IsGroup reports whether the record is a category group.
func (c CategoryRecord) IsGroup() bool {
	return c.Level == LevelGroup
}

// CategoryMatch is one resolver result: a category candidate for a query
// term, with its similarity distance and derived confidence. Produced
// transiently per resolver call.
type CategoryMatch struct {
	QueryTerm  string         `json:"query_term"`
	Category   CategoryRecord `json:"category"`
	Distance   float64        `json:"distance"`
	Confidence Confidence     `json:"confidence"`
}

// NewCategoryMatch builds a match with its confidence bucket derived from
// the distance.
func NewCategoryMatch(term string, record CategoryRecord, distance float64) CategoryMatch {
	return CategoryMatch{
		QueryTerm:  term,
		Category:   record,
		Distance:   distance,
		Confidence: ConfidenceForDistance(distance),
	}
}
