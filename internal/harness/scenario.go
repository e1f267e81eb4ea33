package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario is a sequence of operator steps and the assertions that must
// hold afterwards.
type Scenario struct {
	// Name uniquely identifies the scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what the scenario validates.
	Description string `yaml:"description"`

	// Flow lists the steps in order.
	Flow []Step `yaml:"flow"`

	// Assertions validate the final state.
	Assertions []Assertion `yaml:"assertions"`
}

// Step actions.
const (
	ActionAddProduct    = "add_product"
	ActionDeleteProduct = "delete_product"
	ActionSelect        = "select"
	ActionRemove        = "remove"
	ActionComplete      = "complete"
	ActionRecover       = "recover"
)

// requiredArgs lists the arguments each action needs.
var requiredArgs = map[string][]string{
	ActionAddProduct:    {"name", "price", "stock"},
	ActionDeleteProduct: {"product"},
	ActionSelect:        {"product", "quantity"},
	ActionRemove:        {"product"},
	ActionComplete:      {},
	ActionRecover:       {},
}

// Step is one operator action.
type Step struct {
	Action string         `yaml:"action"`
	Args   map[string]any `yaml:"args,omitempty"`

	// Expect checks the step outcome. Without it the step must succeed.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect describes the expected outcome of a step.
type Expect struct {
	// Outcome is "ok" or an error code such as VALIDATION or NOT_FOUND.
	Outcome string `yaml:"outcome"`

	// Notification, when set, must be among the titles the step raised.
	Notification string `yaml:"notification,omitempty"`
}

// Assertion validates final state.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	Product int64  `yaml:"product,omitempty"` // stock
	Sale    int64  `yaml:"sale,omitempty"`    // sale_field
	Field   string `yaml:"field,omitempty"`   // sale_field
	Expect  any    `yaml:"expect,omitempty"`  // stock, sale_field
	Count   int    `yaml:"count,omitempty"`   // *_count
}

// Assertion type constants.
const (
	AssertStock        = "stock"
	AssertSaleCount    = "sale_count"
	AssertCartCount    = "cart_count"
	AssertPendingCount = "pending_count"
	AssertSaleField    = "sale_field"
)

// LoadScenario reads and parses a scenario YAML file.
// Unknown fields are rejected so typos surface as errors.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Flow {
		required, ok := requiredArgs[step.Action]
		if !ok {
			return fmt.Errorf("flow[%d]: unknown action %q", i, step.Action)
		}
		for _, arg := range required {
			if _, ok := step.Args[arg]; !ok {
				return fmt.Errorf("flow[%d]: %s requires arg %q", i, step.Action, arg)
			}
		}
		if step.Expect != nil && step.Expect.Outcome == "" {
			return fmt.Errorf("flow[%d].expect: outcome is required", i)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertStock:
		if a.Product == 0 || a.Expect == nil {
			return fmt.Errorf("assertions[%d]: product and expect are required for stock", index)
		}
	case AssertSaleField:
		if a.Sale == 0 || a.Field == "" || a.Expect == nil {
			return fmt.Errorf("assertions[%d]: sale, field and expect are required for sale_field", index)
		}
		if _, ok := saleFields[a.Field]; !ok {
			return fmt.Errorf("assertions[%d]: unknown sale field %q", index, a.Field)
		}
	case AssertSaleCount, AssertCartCount, AssertPendingCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for %s", index, a.Type)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
