// Package core provides the fundamental building blocks of the seance
// repository layer. This file defines the annotated-query path: methods
// bound to an externally authored query text instead of a derived one. The
// text itself is never parsed beyond placeholder detection and leading
// keyword classification.
package core

import (
	"regexp"
	"strings"
)

// QueryOptions is the declaration surface of an annotated query method.
type QueryOptions struct {
	Text       string   // The literal query text
	Native     bool     // Whether the text targets the store's native language
	CountText  string   // Explicit count query for paged results
	Modifying  bool     // Whether the query mutates data
	ParamNames []string // Per-parameter name overrides for named placeholders
}

// ParameterStyle classifies the placeholder syntax of an annotated query
// text: named (:identifier) or positional (?digit). Mixing both in one
// text is a compile-time error.
type ParameterStyle int

const (
	StyleNone ParameterStyle = iota
	StyleNamed
	StylePositional
)

func (s ParameterStyle) String() string {
	switch s {
	case StyleNamed:
		return "named"
	case StylePositional:
		return "positional"
	default:
		return "none"
	}
}

var (
	// The leading character class keeps "::" type casts in native text
	// from being read as named placeholders.
	namedPlaceholderPattern      = regexp.MustCompile(`(?:^|[^:A-Za-z0-9_]):([A-Za-z_][A-Za-z0-9_]*)`)
	positionalPlaceholderPattern = regexp.MustCompile(`\?[0-9]+`)
)

// DetectParameterStyle scans a query text for placeholder syntax. For the
// named style it also returns the placeholder names in first-appearance
// order, without duplicates.
func DetectParameterStyle(text string) (ParameterStyle, []string, error) {
	namedMatches := namedPlaceholderPattern.FindAllStringSubmatch(text, -1)
	positional := positionalPlaceholderPattern.MatchString(text)

	if len(namedMatches) > 0 && positional {
		return StyleNone, nil, ErrMixedParameterStyle
	}
	if positional {
		return StylePositional, nil, nil
	}
	if len(namedMatches) > 0 {
		seen := map[string]bool{}
		var names []string
		for _, match := range namedMatches {
			if !seen[match[1]] {
				seen[match[1]] = true
				names = append(names, match[1])
			}
		}
		return StyleNamed, names, nil
	}
	return StyleNone, nil, nil
}

// classifyQueryText checks the declared modifying flag against the leading
// keyword of the text. A modifying method bound to a SELECT/FROM
// projection, or an UPDATE/DELETE text on a non-modifying method, is a
// programming error in the method declaration.
func classifyQueryText(opts *QueryOptions) error {
	head := leadingKeyword(opts.Text)
	selectShaped := head == "SELECT" || head == "FROM"
	modifyingShaped := head == "UPDATE" || head == "DELETE" || head == "INSERT"

	if opts.Modifying && selectShaped {
		return ErrModifyingSelect
	}
	if !opts.Modifying && modifyingShaped {
		return ErrMissingModifying
	}
	return nil
}

func leadingKeyword(text string) string {
	trimmed := strings.TrimSpace(text)
	if at := strings.IndexFunc(trimmed, func(r rune) bool { return r == ' ' || r == '\t' || r == '\n' }); at > 0 {
		trimmed = trimmed[:at]
	}
	return strings.ToUpper(trimmed)
}

// compileAnnotated produces the compiled artifact for an annotated method.
// Parameter-style detection runs over both the primary and the count text;
// the two must agree in style.
func compileAnnotated(name string, opts *QueryOptions, returns ReturnShape) (*CompiledMethod, error) {
	if err := classifyQueryText(opts); err != nil {
		return nil, err
	}
	style, names, err := DetectParameterStyle(opts.Text)
	if err != nil {
		return nil, err
	}
	if len(opts.ParamNames) > 0 {
		names = opts.ParamNames
	}

	if opts.Modifying && (returns == ReturnPage || returns == ReturnSlice) {
		return nil, ErrModifyingReturn
	}
	if returns == ReturnPage && opts.CountText == "" {
		// The raw-string path performs no query-language parsing, so a
		// count companion cannot be derived from the primary text.
		return nil, ErrMissingCountQuery
	}
	if returns != ReturnPage && opts.CountText != "" {
		return nil, ErrSuperfluousCountQuery
	}

	shape := ShapeSelect
	if opts.Modifying {
		shape = ShapeDelete
	}

	return &CompiledMethod{
		Name:       name,
		Text:       opts.Text,
		CountText:  opts.CountText,
		Returns:    returns,
		Shape:      shape,
		Annotated:  true,
		Native:     opts.Native,
		Modifying:  opts.Modifying,
		Style:      style,
		ParamNames: names,
	}, nil
}
