package cli

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"

	"github.com/primsh/walletd/internal/money"
)

// policySchema constrains policy documents before any database write.
// Amounts are decimal strings with at most six fractional digits, the
// same grammar the engine accepts.
const policySchema = `
#Amount: string & =~"^[0-9]+(\\.[0-9]{1,6})?$"

#Policy: {
	wallet: string & !=""
	max_per_tx?:             #Amount
	max_per_day?:            #Amount
	allowed_counterparties?: [...string & !=""]
}

policies: [...#Policy] & [_, ...]
`

// PolicyChange is one wallet's desired limits from a policy document.
type PolicyChange struct {
	Wallet    string
	MaxPerTx  *money.Amount
	MaxPerDay *money.Amount
	// Allowed distinguishes absent (nil, no restriction) from present
	// and empty (block every counterparty).
	Allowed []string
}

type policyDocument struct {
	Policies []struct {
		Wallet                string   `yaml:"wallet"`
		MaxPerTx              *string  `yaml:"max_per_tx"`
		MaxPerDay             *string  `yaml:"max_per_day"`
		AllowedCounterparties []string `yaml:"allowed_counterparties"`
	} `yaml:"policies"`
}

// LoadPolicyFile reads a YAML policy document, validates it against the
// schema and returns the per-wallet changes in document order.
func LoadPolicyFile(path string) ([]PolicyChange, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy file: %w", err)
	}

	// Structural validation first, so schema errors name the offending
	// field instead of surfacing as a parse failure downstream.
	var generic any
	if err := yaml.Unmarshal(data, &generic); err != nil {
		return nil, fmt.Errorf("parse policy file: %w", err)
	}
	if err := validatePolicyDocument(generic); err != nil {
		return nil, err
	}

	var doc policyDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse policy file: %w", err)
	}

	changes := make([]PolicyChange, 0, len(doc.Policies))
	seen := make(map[string]bool, len(doc.Policies))
	for _, p := range doc.Policies {
		if seen[p.Wallet] {
			return nil, fmt.Errorf("policy file: wallet %q appears more than once", p.Wallet)
		}
		seen[p.Wallet] = true

		change := PolicyChange{
			Wallet:  p.Wallet,
			Allowed: p.AllowedCounterparties,
		}
		if p.MaxPerTx != nil {
			amt, err := money.Parse(*p.MaxPerTx)
			if err != nil {
				return nil, fmt.Errorf("policy file: wallet %q max_per_tx: %w", p.Wallet, err)
			}
			change.MaxPerTx = &amt
		}
		if p.MaxPerDay != nil {
			amt, err := money.Parse(*p.MaxPerDay)
			if err != nil {
				return nil, fmt.Errorf("policy file: wallet %q max_per_day: %w", p.Wallet, err)
			}
			change.MaxPerDay = &amt
		}
		changes = append(changes, change)
	}
	return changes, nil
}

// validatePolicyDocument unifies the decoded document with the schema.
func validatePolicyDocument(doc any) error {
	ctx := cuecontext.New()

	schema := ctx.CompileString(policySchema)
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile policy schema: %w", err)
	}

	value := ctx.Encode(doc)
	if err := value.Err(); err != nil {
		return fmt.Errorf("policy file: %w", err)
	}

	unified := schema.Unify(value)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("policy file invalid: %s", errors.Details(err, nil))
	}
	return nil
}
