package mars

import (
	"errors"
	"fmt"
)

// ErrNoSuchElement is returned when a Locator's ordinal is past the last match.
var ErrNoSuchElement = errors.New("no such element")

// Locator names a positional lookup: the Ordinal-th (zero based) element matching
// Selector. Ordinal lookups break as soon as the upstream page adds or removes a
// matching element, so every one of them lives in configuration where it can be seen.
type Locator struct {
	Selector string `mapstructure:"selector"`
	Ordinal  int    `mapstructure:"ordinal"`
}

// First is a Locator for the first match of selector.
func First(selector string) Locator {
	return Locator{Selector: selector}
}

// Nth is a Locator for the n-th (zero based) match of selector.
func Nth(selector string, n int) Locator {
	return Locator{Selector: selector, Ordinal: n}
}

// String renders the locator as selector[ordinal].
func (l Locator) String() string {
	return fmt.Sprintf("%s[%d]", l.Selector, l.Ordinal)
}

// Validate reports whether the locator can be resolved at all.
func (l Locator) Validate() error {
	if l.Selector == "" {
		return errors.New("locator selector is required")
	}
	if l.Ordinal < 0 {
		return fmt.Errorf("locator %s: ordinal must be >= 0", l)
	}
	return nil
}
