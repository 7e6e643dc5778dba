// Package analysis builds the HVAC analysis prompt and extracts structured
// answers from free-form model replies.
package analysis

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tjfontaine/hvac-ai-gateway/internal/domain"
)

// SystemContext is the domain preamble injected as system_info when the
// caller does not supply one. Keep it a single constant so it can be
// versioned and tested.
const SystemContext = "You are an expert HVAC engineer and energy consultant. " +
	"You give precise, practical advice on heating, ventilation and air conditioning: " +
	"system sizing, equipment selection, installation and commissioning, energy efficiency, " +
	"cost estimation and building-code compliance. Use metric units and state your assumptions."

// Depth values recognized in the analysis_depth key.
const (
	DepthDetailed   = "detailed"
	DepthCompliance = "compliance"
)

// BuildPrompt formats the fixed HVAC analysis prompt for input.
func BuildPrompt(input domain.HVACInput) string {
	var b strings.Builder

	b.WriteString("You are an expert HVAC engineer. Analyze the building described below and ")
	b.WriteString("recommend an HVAC solution.\n\n")

	b.WriteString("Building data:\n")
	writeField(&b, "Floor area (m²)", input["area"])
	writeField(&b, "Occupancy", input["occupancy"])
	writeField(&b, "Climate zone", input["climate_zone"])
	writeField(&b, "Current system", input["current_system"])
	writeField(&b, "Building type", input["building_type"])

	if data, err := json.Marshal(input); err == nil {
		b.WriteString("\nFull input:\n")
		b.Write(data)
		b.WriteString("\n")
	}

	depth, _ := input["analysis_depth"].(string)
	switch depth {
	case DepthDetailed:
		b.WriteString("\nProvide a detailed analysis including economics and code compliance.\n")
	case DepthCompliance:
		b.WriteString("\nFocus on compliance with the applicable building code (DBN).\n")
	}

	b.WriteString("\nRespond with a single JSON object with these fields:\n")
	b.WriteString(`  "recommended_system": string,` + "\n")
	b.WriteString(`  "required_capacity_kw": number,` + "\n")
	b.WriteString(`  "estimated_cost_usd": number,` + "\n")
	b.WriteString(`  "energy_efficiency_class": one of "A+", "A", "B", "C", "D",` + "\n")
	b.WriteString(`  "annual_savings_percent": number between 0 and 100,` + "\n")
	if depth == DepthDetailed || depth == DepthCompliance {
		b.WriteString(`  "dbn_compliance": boolean,` + "\n")
	}
	b.WriteString(`  "recommendations": array of strings` + "\n")
	b.WriteString("All numbers must be non-negative.")

	return b.String()
}

func writeField(b *strings.Builder, label string, value any) {
	if value == nil {
		return
	}
	fmt.Fprintf(b, "- %s: %v\n", label, value)
}
