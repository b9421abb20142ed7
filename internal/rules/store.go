package rules

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// Store loads and saves the ordered rule list as a whole JSON document.
// Rules are immutable once created; the only mutation is appending.
type Store struct {
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load reads the rule list. A missing file is an empty rule set, not an
// error, so a fresh installation classifies everything as unmatched.
func (s *Store) Load() ([]Rule, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read rules file: %w", err)
	}
	var list []Rule
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("decode rules file: %w", err)
	}
	return list, nil
}

// Save writes the whole rule list back, preserving order.
func (s *Store) Save(list []Rule) error {
	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return fmt.Errorf("encode rules: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write rules file: %w", err)
	}
	return nil
}

// Append adds a rule to the end of the list and reports whether it was
// added. Adding is a no-op when an existing rule already carries a
// case-insensitive-identical pattern.
func (s *Store) Append(r Rule) (bool, error) {
	list, err := s.Load()
	if err != nil {
		return false, err
	}
	needle := strings.ToLower(strings.TrimSpace(r.Match))
	if needle == "" {
		return false, nil
	}
	for _, existing := range list {
		if strings.ToLower(existing.Match) == needle {
			slog.Info("Rule pattern already exists, skipping", "pattern", r.Match)
			return false, nil
		}
	}
	r.Match = strings.TrimSpace(r.Match)
	list = append(list, r)
	if err := s.Save(list); err != nil {
		return false, err
	}
	return true, nil
}

// InferRegex guesses whether a pattern is meant as a regex by looking for
// regex metacharacters, matching the labeling flow's heuristic.
func InferRegex(pattern string) bool {
	return strings.ContainsAny(pattern, `*+?[]()^$|`)
}
