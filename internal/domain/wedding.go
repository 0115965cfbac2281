package domain

import (
	"strings"
	"time"
)

// TaskCategory enumerates checklist task categories.
type TaskCategory string

const (
	TaskCategoryLegal    TaskCategory = "legal"
	TaskCategoryVendor   TaskCategory = "vendor"
	TaskCategoryFashion  TaskCategory = "fashion"
	TaskCategoryBeauty   TaskCategory = "beauty"
	TaskCategoryCeremony TaskCategory = "ceremony"
	TaskCategoryParty    TaskCategory = "party"
)

// TaskCategories lists every accepted task category in display order.
var TaskCategories = []string{"legal", "vendor", "fashion", "beauty", "ceremony", "party"}

// GuestCategory enumerates guest groupings.
type GuestCategory string

const (
	GuestCategoryFamily GuestCategory = "family"
	GuestCategoryFriend GuestCategory = "friend"
	GuestCategoryWork   GuestCategory = "work"
	GuestCategoryVIP    GuestCategory = "vip"
)

// GuestCategories lists every accepted guest category.
var GuestCategories = []string{"family", "friend", "work", "vip"}

// WeddingProfile is collected during onboarding.
type WeddingProfile struct {
	Names      string  `json:"names" validate:"required,max=120"`
	Date       string  `json:"date" validate:"required,datetime=2006-01-02"`
	Budget     float64 `json:"budget" validate:"gte=0"`
	Style      string  `json:"style" validate:"required,max=60"`
	GuestCount int     `json:"guestCount" validate:"gte=0,lte=5000"`
	Location   string  `json:"location" validate:"max=120"`
}

// Task is a checklist item.
type Task struct {
	ID        string       `json:"id"`
	Title     string       `json:"title"`
	Month     string       `json:"month"`
	Completed bool         `json:"completed"`
	Category  TaskCategory `json:"category"`
}

// Guest is a single invitee. ConflictPotential holds names of people the
// guest should not share a table with.
type Guest struct {
	ID                string        `json:"id" validate:"max=64"`
	Name              string        `json:"name" validate:"required,max=120"`
	Category          GuestCategory `json:"category" validate:"omitempty,oneof=family friend work vip"`
	Confirmed         bool          `json:"confirmed"`
	ConflictPotential []string      `json:"conflictPotential" validate:"dive,max=120"`
}

// Table is a seating group proposed by the model.
type Table struct {
	ID        int     `json:"id"`
	Name      string  `json:"name"`
	Guests    []Guest `json:"guests"`
	Reasoning string  `json:"reasoning"`
}

// BudgetItem is one category of the budget breakdown.
type BudgetItem struct {
	ID        string  `json:"id"`
	Category  string  `json:"category"`
	Estimated float64 `json:"estimated"`
	Actual    float64 `json:"actual"`
	Paid      bool    `json:"paid"`
}

// MoodboardKind tells images and videos apart.
type MoodboardKind string

const (
	MoodboardImage MoodboardKind = "image"
	MoodboardVideo MoodboardKind = "video"
)

// MoodboardItem is a generated inspiration artifact.
type MoodboardItem struct {
	ID     string        `json:"id"`
	Type   MoodboardKind `json:"type"`
	URL    string        `json:"url"`
	Prompt string        `json:"prompt"`
}

// Summary is the dashboard view over a profile and its checklist.
type Summary struct {
	FirstName string `json:"firstName"`
	DaysLeft  int    `json:"daysLeft"`
	Progress  int    `json:"progress"`
	Completed int    `json:"completed"`
	Total     int    `json:"total"`
	NextTasks []Task `json:"nextTasks"`
}

// Summarize computes the dashboard summary as of now.
func Summarize(profile WeddingProfile, tasks []Task, now time.Time) Summary {
	completed := 0
	for _, t := range tasks {
		if t.Completed {
			completed++
		}
	}
	total := len(tasks)
	denominator := total
	if denominator == 0 {
		denominator = 1
	}
	var next []Task
	for _, t := range tasks {
		if t.Completed {
			continue
		}
		next = append(next, t)
		if len(next) == 3 {
			break
		}
	}
	s := Summary{
		FirstName: "Noiva",
		Progress:  (completed*100 + denominator/2) / denominator,
		Completed: completed,
		Total:     total,
		NextTasks: next,
	}
	if fields := strings.Fields(profile.Names); len(fields) > 0 {
		s.FirstName = fields[0]
	}
	if date, err := time.Parse("2006-01-02", strings.TrimSpace(profile.Date)); err == nil {
		hours := date.Sub(now).Hours()
		days := int(hours / 24)
		if hours > float64(days*24) {
			days++
		}
		s.DaysLeft = days
	}
	return s
}
