package premise

import "fmt"

// Scenario identifies one (model, pathway, year) combination.
type Scenario struct {
	Model   string
	Pathway string
	Year    int
}

func (s Scenario) String() string {
	return fmt.Sprintf("%s/%s/%d", s.Model, s.Pathway, s.Year)
}

type ScenarioErr struct {
	Scenario  Scenario
	Operation string
	Err       error
}

func (scenarioErr *ScenarioErr) Error() string {
	return fmt.Sprintf("scenario %s: operation failed (op: %s): %s", scenarioErr.Scenario, scenarioErr.Operation, scenarioErr.Err.Error())
}

func (scenarioErr *ScenarioErr) Unwrap() error {
	return scenarioErr.Err
}
