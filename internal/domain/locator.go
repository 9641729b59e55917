package domain

import (
	"fmt"
	"strings"
)

type LocatorKind string

const (
	LocatorCSS   LocatorKind = "css"
	LocatorXPath LocatorKind = "xpath"
	// LocatorText matches links, buttons and inputs whose visible text or
	// value contains the locator value.
	LocatorText LocatorKind = "text"
)

type Locator struct {
	Kind  LocatorKind
	Value string
}

func CSS(value string) Locator   { return Locator{Kind: LocatorCSS, Value: value} }
func XPath(value string) Locator { return Locator{Kind: LocatorXPath, Value: value} }
func Text(value string) Locator  { return Locator{Kind: LocatorText, Value: value} }

func (l Locator) String() string {
	return string(l.Kind) + ":" + l.Value
}

// ParseLocator accepts "css:...", "xpath:...", "text:..." or a bare CSS selector.
func ParseLocator(raw string) (Locator, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Locator{}, fmt.Errorf("%w: empty locator", ErrConfiguration)
	}

	prefix, value, found := strings.Cut(trimmed, ":")
	if found {
		switch LocatorKind(strings.ToLower(prefix)) {
		case LocatorCSS, LocatorXPath, LocatorText:
			value = strings.TrimSpace(value)
			if value == "" {
				return Locator{}, fmt.Errorf("%w: empty %s locator", ErrConfiguration, prefix)
			}
			return Locator{Kind: LocatorKind(strings.ToLower(prefix)), Value: value}, nil
		}
	}

	return CSS(trimmed), nil
}

func ParseLocators(raw []string) ([]Locator, error) {
	locators := make([]Locator, 0, len(raw))
	for _, entry := range raw {
		locator, err := ParseLocator(entry)
		if err != nil {
			return nil, err
		}
		locators = append(locators, locator)
	}

	return locators, nil
}
