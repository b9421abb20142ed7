// Package rules implements the rule-based transaction classifier.
//
// Rules form an ordered list and encode priority from lowest to highest:
// every rule is applied to every transaction in list order, and the last
// matching rule wins. This is deliberate overwrite resolution, not
// first-match shortcutting, so a later broad rule can refine an earlier
// generic one.
package rules

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"haushalt/internal/core"
)

// Transaction attributes a rule may test.
const (
	FieldAmount       = "amount"
	FieldRemittance   = "remittance"
	FieldCounterparty = "counterparty"
	FieldID           = "id"
)

// Rule is one classification rule as stored in rules.json.
type Rule struct {
	Match    string `json:"match"`
	Field    string `json:"field"`
	Category string `json:"category"`
	IsRegex  bool   `json:"regex"`
}

// ConfigurationError reports a rule that cannot be compiled: an unknown
// field name or an unparseable regex. Detected when the rule set is
// loaded, never mid-scan.
type ConfigurationError struct {
	Rule   Rule
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid rule %q: %s", e.Rule.Match, e.Reason)
}

// numericPattern recognizes amount comparisons like ">100" or "<= 12.50".
var numericPattern = regexp.MustCompile(`^(>=|<=|==|!=|>|<)\s*(\d+(?:\.\d+)?)$`)

type predicate func(core.Transaction) bool

type compiledRule struct {
	category string
	matches  predicate
}

// Engine classifies transaction batches against a compiled rule list.
// It holds no mutable state; classification is a pure function of the
// batch and the rules.
type Engine struct {
	rules []compiledRule
}

// NewEngine compiles the rule list. Rules that fail to compile are
// skipped and reported through the returned error (a join of
// ConfigurationError values); the engine is still usable with the
// remaining valid rules.
func NewEngine(list []Rule) (*Engine, error) {
	e := &Engine{rules: make([]compiledRule, 0, len(list))}
	var errs []error
	for _, r := range list {
		cr, err := compile(r)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		e.rules = append(e.rules, cr)
	}
	return e, errors.Join(errs...)
}

// Len returns the number of usable rules.
func (e *Engine) Len() int {
	return len(e.rules)
}

// Classify returns a copy of the batch with categories assigned. Every
// transaction starts unclassified regardless of prior state, each rule is
// applied in order, and the last matching rule's category sticks.
// Transactions no rule matches come back with an empty category.
func (e *Engine) Classify(txs []core.Transaction) []core.Transaction {
	out := make([]core.Transaction, len(txs))
	copy(out, txs)
	for i := range out {
		out[i].Category = ""
	}
	for _, r := range e.rules {
		for i := range out {
			if r.matches(out[i]) {
				out[i].Category = r.category
			}
		}
	}
	return out
}

func compile(r Rule) (compiledRule, error) {
	pattern := strings.TrimSpace(r.Match)

	if r.Field == FieldAmount {
		if m := numericPattern.FindStringSubmatch(pattern); m != nil {
			op := m[1]
			value, err := strconv.ParseFloat(m[2], 64)
			if err == nil {
				return compiledRule{category: r.Category, matches: numericMatcher(op, value)}, nil
			}
		}
		// Unparseable numeric patterns degrade to string matching on the
		// amount rendered as text rather than erroring.
	}

	stringValue, err := fieldValue(r.Field)
	if err != nil {
		return compiledRule{}, &ConfigurationError{Rule: r, Reason: err.Error()}
	}

	if r.IsRegex {
		re, err := regexp.Compile("(?i)" + pattern)
		if err != nil {
			return compiledRule{}, &ConfigurationError{Rule: r, Reason: fmt.Sprintf("bad regex: %v", err)}
		}
		return compiledRule{category: r.Category, matches: func(t core.Transaction) bool {
			return re.MatchString(stringValue(t))
		}}, nil
	}

	needle := strings.ToLower(pattern)
	return compiledRule{category: r.Category, matches: func(t core.Transaction) bool {
		return strings.Contains(strings.ToLower(stringValue(t)), needle)
	}}, nil
}

func numericMatcher(op string, value float64) predicate {
	return func(t core.Transaction) bool {
		switch op {
		case ">":
			return t.Amount > value
		case ">=":
			return t.Amount >= value
		case "<":
			return t.Amount < value
		case "<=":
			return t.Amount <= value
		case "==":
			return t.Amount == value
		case "!=":
			return t.Amount != value
		}
		return false
	}
}

func fieldValue(field string) (func(core.Transaction) string, error) {
	switch field {
	case FieldAmount:
		return func(t core.Transaction) string { return core.FormatAmount(t.Amount) }, nil
	case FieldRemittance:
		return func(t core.Transaction) string { return t.Remittance }, nil
	case FieldCounterparty:
		return func(t core.Transaction) string { return t.CounterpartyRef }, nil
	case FieldID:
		return func(t core.Transaction) string { return t.ID }, nil
	}
	return nil, fmt.Errorf("unknown field %q", field)
}
