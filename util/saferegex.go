package util

import (
	"fmt"
	"regexp"
	"strings"
)

// Constants for redaction pattern validation
const (
	// MaxPatternLength is the maximum allowed pattern length
	MaxPatternLength = 500
	// MaxAlternations is the maximum allowed alternation count
	MaxAlternations = 50
)

// ValidatePattern vets a redaction pattern for safety before it is handed to
// the matcher. Patterns that could backtrack catastrophically are rejected at
// policy load time; the matcher's own timeout is the second line of defense.
func ValidatePattern(pattern string) error {
	if pattern == "" {
		return fmt.Errorf("pattern cannot be empty")
	}

	if len(pattern) > MaxPatternLength {
		return fmt.Errorf("pattern too long: %d characters (max %d)", len(pattern), MaxPatternLength)
	}

	if err := checkForReDoSPatterns(pattern); err != nil {
		return err
	}

	if alternationCount := strings.Count(pattern, "|"); alternationCount > MaxAlternations {
		return fmt.Errorf("too many alternations: %d (max %d)", alternationCount, MaxAlternations)
	}

	if err := checkForExcessiveRepetition(pattern); err != nil {
		return err
	}

	if err := checkNesting(pattern); err != nil {
		return err
	}

	return nil
}

// nestedQuantifierRes match quantified groups that are themselves
// quantified, e.g. (a+)+ — the classic catastrophic backtracking shape.
var nestedQuantifierRes = []*regexp.Regexp{
	regexp.MustCompile(`\([^)]*\*\)\*`),
	regexp.MustCompile(`\([^)]*\+\)\+`),
	regexp.MustCompile(`\([^)]*\?\)\?`),
	regexp.MustCompile(`\([^)]*\{[^}]*\}\)\{`),
}

// checkForReDoSPatterns checks for dangerous nested quantifier sequences
func checkForReDoSPatterns(pattern string) error {
	dangerousPatterns := []string{
		")+*", ")*+", ")+{", ")*{",
		"}+*", "}*+", "}+{", "}*{",
		"++", "**", "*+", "+*",
	}

	for _, dangerous := range dangerousPatterns {
		if strings.Contains(pattern, dangerous) {
			return fmt.Errorf("pattern contains nested quantifiers which may cause ReDoS: found '%s'", dangerous)
		}
	}

	for _, re := range nestedQuantifierRes {
		if re.MatchString(pattern) {
			return fmt.Errorf("pattern contains nested quantifiers which may cause ReDoS")
		}
	}

	return nil
}

// checkForExcessiveRepetition checks for repetition ranges of 1000 or more
func checkForExcessiveRepetition(pattern string) error {
	repetitionRe := regexp.MustCompile(`\{(\d+)(?:,\d*)?\}`)
	matches := repetitionRe.FindAllStringSubmatch(pattern, -1)

	for _, match := range matches {
		if len(match) > 1 {
			var count int
			fmt.Sscanf(match[1], "%d", &count)
			if count >= 1000 {
				return fmt.Errorf("excessive repetition: %s (max 999)", match[0])
			}
		}
	}

	return nil
}

// checkNesting enforces balanced parentheses and a maximum group depth of 3.
func checkNesting(pattern string) error {
	nestingDepth := 0
	escaped := false
	inClass := false
	for _, char := range pattern {
		if escaped {
			escaped = false
			continue
		}
		switch char {
		case '\\':
			escaped = true
		case '[':
			inClass = true
		case ']':
			inClass = false
		case '(':
			if inClass {
				continue
			}
			nestingDepth++
			if nestingDepth > 3 {
				return fmt.Errorf("pattern has excessive nesting depth: %d (max 3)", nestingDepth)
			}
		case ')':
			if inClass {
				continue
			}
			nestingDepth--
			if nestingDepth < 0 {
				return fmt.Errorf("pattern has unmatched closing parenthesis")
			}
		}
	}

	if nestingDepth != 0 {
		return fmt.Errorf("pattern has unmatched parentheses")
	}

	return nil
}
