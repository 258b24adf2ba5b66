package registry

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	nameMinLength = 2
	nameMaxLength = 50
	rollMinLength = 5
	rollMaxLength = 20
)

var (
	namePattern = regexp.MustCompile(`^[A-Za-z\s.\-']+$`)
	rollPattern = regexp.MustCompile(`^[A-Z0-9]+$`)
)

// Validator enforces enrollment format rules against the configured
// academic enums.
type Validator struct {
	branches []string
	sections []string
}

func NewValidator(branches, sections []string) *Validator {
	return &Validator{branches: branches, sections: sections}
}

// RemoveDiacritics removes diacritical marks from a string (e.g., "Jiří" -> "Jiri").
func RemoveDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}

// NormalizeName normalizes a name for duplicate comparison (lowercase,
// no diacritics, collapsed whitespace).
func NormalizeName(name string) string {
	name = RemoveDiacritics(name)
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.Join(strings.Fields(name), " ")
}

// ValidateName checks length and character rules, returning the trimmed name.
func (v *Validator) ValidateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: name cannot be empty", ErrInvalidFormat)
	}
	if len(name) < nameMinLength || len(name) > nameMaxLength {
		return "", fmt.Errorf("%w: name must be %d-%d characters", ErrInvalidFormat, nameMinLength, nameMaxLength)
	}
	if !namePattern.MatchString(name) {
		return "", fmt.Errorf("%w: name can only contain letters, spaces, dots, hyphens, and apostrophes", ErrInvalidFormat)
	}
	return name, nil
}

// ValidateRoll checks the branch-prefix + numeric-suffix pattern
// (e.g. AIML001), returning the uppercased roll number.
func (v *Validator) ValidateRoll(rollNo string) (string, error) {
	rollNo = strings.ToUpper(strings.TrimSpace(rollNo))
	if rollNo == "" {
		return "", fmt.Errorf("%w: roll number cannot be empty", ErrInvalidFormat)
	}
	if len(rollNo) < rollMinLength || len(rollNo) > rollMaxLength {
		return "", fmt.Errorf("%w: roll number must be %d-%d characters", ErrInvalidFormat, rollMinLength, rollMaxLength)
	}
	if !rollPattern.MatchString(rollNo) {
		return "", fmt.Errorf("%w: roll number can only contain uppercase letters and numbers", ErrInvalidFormat)
	}

	for _, branch := range v.branches {
		suffix, ok := strings.CutPrefix(rollNo, branch)
		if !ok || suffix == "" {
			continue
		}
		for _, r := range suffix {
			if r < '0' || r > '9' {
				return "", fmt.Errorf("%w: roll number suffix after %s must be numeric", ErrInvalidFormat, branch)
			}
		}
		return rollNo, nil
	}
	return "", fmt.Errorf("%w: roll number must start with an allowed branch prefix (%s)", ErrInvalidFormat, strings.Join(v.branches, ", "))
}

// ValidateClass checks branch and section against the allowed enums.
func (v *Validator) ValidateClass(branch, section string) (string, string, error) {
	branch = strings.ToUpper(strings.TrimSpace(branch))
	section = strings.ToUpper(strings.TrimSpace(section))

	if !contains(v.branches, branch) {
		return "", "", fmt.Errorf("%w: invalid branch %q, allowed: %s", ErrInvalidFormat, branch, strings.Join(v.branches, ", "))
	}
	if !contains(v.sections, section) {
		return "", "", fmt.Errorf("%w: invalid section %q, allowed: %s", ErrInvalidFormat, section, strings.Join(v.sections, ", "))
	}
	return branch, section, nil
}

// ValidateStudent runs all format rules and returns a cleaned copy.
func (v *Validator) ValidateStudent(s Student) (Student, error) {
	name, err := v.ValidateName(s.Name)
	if err != nil {
		return Student{}, err
	}
	branch, section, err := v.ValidateClass(s.Branch, s.Section)
	if err != nil {
		return Student{}, err
	}
	roll, err := v.ValidateRoll(s.RollNo)
	if err != nil {
		return Student{}, err
	}

	s.Name = name
	s.RollNo = roll
	s.Branch = branch
	s.Section = section
	return s, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
