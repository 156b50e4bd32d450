package domain

// Scenario is a guided-form incident category. Each scenario maps to the
// SDS sections that answer it.
type Scenario string

// Guided incident scenarios.
const (
	ScenarioFirstAid     Scenario = "first_aid"
	ScenarioFireResponse Scenario = "fire_response"
	ScenarioSpillCleanup Scenario = "spill_cleanup"
)

// IsValid returns true if the scenario is recognised.
func (s Scenario) IsValid() bool {
	switch s {
	case ScenarioFirstAid, ScenarioFireResponse, ScenarioSpillCleanup:
		return true
	default:
		return false
	}
}

// Sections returns the SDS sections that cover the scenario.
func (s Scenario) Sections() []SectionNumber {
	switch s {
	case ScenarioFirstAid:
		return []SectionNumber{4}
	case ScenarioFireResponse:
		return []SectionNumber{5}
	case ScenarioSpillCleanup:
		return []SectionNumber{6}
	default:
		return nil
	}
}

// AmountCategory is the coarse spill/exposure amount from the guided form.
type AmountCategory string

// Amount categories.
const (
	AmountUnknown AmountCategory = "unknown"
	AmountSmall   AmountCategory = "small"
	AmountLarge   AmountCategory = "large"
)

// IsValid returns true if the amount category is recognised.
func (a AmountCategory) IsValid() bool {
	switch a {
	case AmountUnknown, AmountSmall, AmountLarge:
		return true
	default:
		return false
	}
}

// Query is one user request. Queries are ephemeral.
type Query struct {
	// Text is the free-form question.
	Text string

	// Materials are surface names or canonical IDs of participating
	// materials, when the user names them.
	Materials []string

	// Scenario is set on the guided incident path, empty for free chat.
	Scenario Scenario

	// ExposureRoute is the guided-form exposure route (skin, eye,
	// inhalation, ingestion), empty when not supplied.
	ExposureRoute string

	// Amount is the guided-form amount category, empty when not supplied.
	Amount AmountCategory
}
