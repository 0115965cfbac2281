package planner

import (
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"weddingplanner/internal/domain"
	"weddingplanner/internal/schema"
)

var (
	planSchema = schema.Array(schema.Object([]schema.Property{
		schema.Prop("id", schema.String()),
		schema.Prop("title", schema.String()),
		schema.Prop("month", schema.String()),
		schema.Prop("category", schema.String(domain.TaskCategories...)),
		schema.Prop("completed", schema.Boolean()),
	}, "id", "title", "month", "category", "completed"))

	budgetSchema = schema.Array(schema.Object([]schema.Property{
		schema.Prop("id", schema.String()),
		schema.Prop("category", schema.String()),
		schema.Prop("estimated", schema.Number()),
		schema.Prop("actual", schema.Number()),
		schema.Prop("paid", schema.Boolean()),
	}, "id", "category", "estimated"))

	seatingSchema = schema.Array(schema.Object([]schema.Property{
		schema.Prop("id", schema.Integer()),
		schema.Prop("name", schema.String()),
		schema.Prop("guests", schema.Array(schema.Object([]schema.Property{
			schema.Prop("id", schema.String()),
			schema.Prop("name", schema.String()),
			schema.Prop("category", schema.String()),
			schema.Prop("confirmed", schema.Boolean()),
			schema.Prop("conflictPotential", schema.Array(schema.String())),
		}))),
		schema.Prop("reasoning", schema.String()),
	}, "id", "name", "guests", "reasoning"))
)

func buildPlanPrompt(p domain.WeddingProfile) string {
	sb := &strings.Builder{}
	sb.WriteString("Create a wedding planning checklist for a couple.\n")
	sb.WriteString("Profile:\n")
	fmt.Fprintf(sb, "- Style: %s\n", p.Style)
	fmt.Fprintf(sb, "- Date: %s\n", p.Date)
	fmt.Fprintf(sb, "- Budget: %s\n", formatAmount(p.Budget))
	fmt.Fprintf(sb, "- Location: %s\n", p.Location)
	if p.GuestCount > 0 {
		fmt.Fprintf(sb, "- Guests: %d\n", p.GuestCount)
	}
	sb.WriteString("\nReturn a list of 10 critical tasks distributed over time.\nJSON format only.")
	return sb.String()
}

func buildBudgetPrompt(total float64, style string) string {
	return fmt.Sprintf("Create a budget breakdown for a wedding with total budget %s and style %s.\n"+
		"Break it down into 5-8 major categories (Venue, Catering, Photography, etc.).\nJSON only.",
		formatAmount(total), style)
}

type seatingGuest struct {
	Name      string   `json:"name"`
	Category  string   `json:"category"`
	Conflicts []string `json:"conflicts"`
}

func buildSeatingPrompt(guests []domain.Guest) (string, error) {
	payload := make([]seatingGuest, 0, len(guests))
	for _, g := range guests {
		conflicts := g.ConflictPotential
		if conflicts == nil {
			conflicts = []string{}
		}
		payload = append(payload, seatingGuest{Name: g.Name, Category: string(g.Category), Conflicts: conflicts})
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode guests: %w", err)
	}
	sb := &strings.Builder{}
	sb.WriteString("Organize these wedding guests into tables of 4-6 people.\n")
	sb.WriteString("Maximize harmony. Avoid putting people with 'conflicts' at the same table.\n")
	sb.WriteString("Group by category if it makes sense, but prioritize harmony.\n")
	fmt.Fprintf(sb, "Guests: %s\n\n", raw)
	sb.WriteString("Explain the reasoning for each table composition briefly.")
	return sb.String(), nil
}

func buildAdvicePrompt(problem string, tag language.Tag) string {
	base, _ := tag.Base()
	lang := display.English.Languages().Name(base)
	if lang == "" {
		lang = "Portuguese"
	}
	sb := &strings.Builder{}
	sb.WriteString("ACT AS A PROFESSIONAL WEDDING PLANNER IN CRISIS MODE.\n")
	fmt.Fprintf(sb, "The bride has an emergency: %q.\n", problem)
	sb.WriteString("Provide a calm, immediate \"Plan B\" solution in 3 bullet points.\n")
	sb.WriteString("Keep it under 100 words. Be reassuring.\n")
	fmt.Fprintf(sb, "Language: %s.", lang)
	return sb.String()
}

func formatAmount(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.2f", v)
}
