package reading

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound       = errors.New("reading not found")
	ErrInvalidProfile = errors.New("invalid profile")
	ErrImageNotFound  = errors.New("image not found")
	// ErrImageUnavailable wraps any image store failure on the way to the oracle.
	ErrImageUnavailable = errors.New("captured photo unavailable")
)

const (
	MinAge = 1
	MaxAge = 120

	fallbackArchetype = "Destined One"
)

// ParseGender accepts "male"/"female" and their one-letter forms, any case.
func ParseGender(s string) (Gender, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "male", "m":
		return GenderMale, nil
	case "female", "f":
		return GenderFemale, nil
	}
	return "", fmt.Errorf("%w: gender must be male or female, got %q", ErrInvalidProfile, s)
}

func (p Profile) Validate() error {
	if p.Age < MinAge || p.Age > MaxAge {
		return fmt.Errorf("%w: age must be between %d and %d", ErrInvalidProfile, MinAge, MaxAge)
	}
	if p.Gender != GenderMale && p.Gender != GenderFemale {
		return fmt.Errorf("%w: gender must be male or female", ErrInvalidProfile)
	}
	return nil
}

// LineKey identifies one of the four major lines.
type LineKey string

const (
	LineHeart LineKey = "heart"
	LineHead  LineKey = "head"
	LineLife  LineKey = "life"
	LineFate  LineKey = "fate"
)

// NamedLine pairs a line with its label and overlay colour.
type NamedLine struct {
	Key   LineKey
	Label string
	Color string
	Line  PalmLine
}

// Lines returns the four lines in overlay order.
func (a *PalmAnalysis) Lines() []NamedLine {
	return []NamedLine{
		{Key: LineHeart, Label: "Heart", Color: "#ec4899", Line: a.HeartLine},
		{Key: LineHead, Label: "Head", Color: "#3b82f6", Line: a.HeadLine},
		{Key: LineLife, Label: "Life", Color: "#22c55e", Line: a.LifeLine},
		{Key: LineFate, Label: "Fate", Color: "#a855f7", Line: a.FateLine},
	}
}

func (a *PalmAnalysis) ArchetypeName() string {
	if name := strings.TrimSpace(a.Archetype.Name); name != "" {
		return name
	}
	return fallbackArchetype
}

// Normalize clamps overlay coordinates into [0,1] and talent scores into [0,100].
// Nothing is dropped; the model output is trusted otherwise.
func (a *PalmAnalysis) Normalize() {
	for _, l := range []*PalmLine{&a.HeartLine, &a.HeadLine, &a.LifeLine, &a.FateLine} {
		for i := range l.Points {
			l.Points[i].X = clamp(l.Points[i].X, 0, 1)
			l.Points[i].Y = clamp(l.Points[i].Y, 0, 1)
		}
	}
	for i := range a.Talents {
		a.Talents[i].Score = clamp(a.Talents[i].Score, 0, 100)
	}
}

// Rejected reports whether the model explicitly flagged the photo as unusable.
// Missing flags never reject.
func (a *PalmAnalysis) Rejected() bool {
	v := a.Validation
	if v == nil {
		return false
	}
	if v.IsHand != nil && !*v.IsHand {
		return true
	}
	if v.IsClear != nil && !*v.IsClear {
		return true
	}
	return false
}

func clamp(v, lo, hi float64) float64 {
	if v != v { // NaN
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
