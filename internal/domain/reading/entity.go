package reading

import (
	"time"
)

// ReadingID tipe untuk entry history
type ReadingID string

// Gender enum
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

// Profile is what the user enters before capturing a photo.
type Profile struct {
	Age    int    `json:"age"`
	Gender Gender `json:"gender"`
}

// DefaultProfile matches the values the form is pre-filled with.
func DefaultProfile() Profile {
	return Profile{Age: 25, Gender: GenderFemale}
}

// Point is a normalized (0..1) position on the photo, used for overlay only.
type Point struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Detail string  `json:"detail,omitempty"`
}

type PalmLine struct {
	Observation string  `json:"observation"`
	Meaning     string  `json:"meaning"`
	Points      []Point `json:"points"`
}

type Talent struct {
	Field       string  `json:"field"`
	Score       float64 `json:"score"`
	Description string  `json:"description"`
}

type Mount struct {
	Name    string `json:"name"`
	Status  string `json:"status"`
	Meaning string `json:"meaning"`
}

type LifeStage struct {
	Period  string `json:"period"`
	Insight string `json:"insight"`
}

type Archetype struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type Element struct {
	Type        string   `json:"type"`
	Description string   `json:"description"`
	Traits      []string `json:"traits"`
}

// Validation holds the optional self-check flags the model may emit.
// A nil flag means the model said nothing about it.
type Validation struct {
	IsHand  *bool  `json:"isHand,omitempty"`
	IsClear *bool  `json:"isClear,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

// PalmAnalysis is the structured reading returned by the model.
type PalmAnalysis struct {
	Overall         string      `json:"overall"`
	Archetype       Archetype   `json:"archetype"`
	Element         Element     `json:"element"`
	HeartLine       PalmLine    `json:"heartLine"`
	HeadLine        PalmLine    `json:"headLine"`
	LifeLine        PalmLine    `json:"lifeLine"`
	FateLine        PalmLine    `json:"fateLine"`
	Mounts          []Mount     `json:"mounts"`
	Talents         []Talent    `json:"talents"`
	LifeStages      []LifeStage `json:"lifeStages"`
	SpecialMarkings []string    `json:"specialMarkings"`
	SummaryAdvice   string      `json:"summaryAdvice"`
	Validation      *Validation `json:"validation,omitempty"`
}

// Reading represents one stored analysis in the history list
type Reading struct {
	ID        ReadingID    `json:"id"`
	CreatedAt time.Time    `json:"created_at"`
	Profile   Profile      `json:"profile"`
	ImageKey  string       `json:"image_key,omitempty"`
	ImageURL  string       `json:"image_url,omitempty"`
	Provider  string       `json:"provider"`
	Model     string       `json:"model"`
	Analysis  PalmAnalysis `json:"analysis"`
}
