package store

import (
	"regexp"
	"slices"
	"strings"

	"kongming/internal/models"
)

var colorPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// ValidationError lists why a submission was rejected. Nothing is written
// when it is returned.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid event: " + strings.Join(e.Problems, "; ")
}

// Validate checks f before any write. facet names the classification column;
// when allowed is non-empty a non-empty facet value must be one of them.
func Validate(f models.Fields, facet string, allowed []string) error {
	var problems []string
	if strings.TrimSpace(f.Title) == "" {
		problems = append(problems, "title is required")
	}
	if f.Start.IsZero() || f.End.IsZero() {
		problems = append(problems, "start and end are required")
	} else if !f.End.After(f.Start) {
		problems = append(problems, "end must be after start")
	}
	if f.Color != "" && !colorPattern.MatchString(f.Color) {
		problems = append(problems, "color must be #RRGGBB")
	}
	if v := f.Facet(facet); v != "" && len(allowed) > 0 && !slices.Contains(allowed, v) {
		problems = append(problems, facet+" "+v+" is not a known value")
	}
	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}
