package automation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Validation constants.
const (
	maxNameLength   = 100
	maxBodyLength   = 4096
	maxSlugLength   = 50
	maxDelayMinutes = 30 * 24 * 60
)

var (
	validate = validator.New(validator.WithRequiredStructEnabled())

	// placeholderPattern matches a complete {{token}}.
	placeholderPattern = regexp.MustCompile(`\{\{\s*(\w+)\s*\}\}`)
)

// ValidateTemplate checks a template before it is saved. Placeholders
// naming unknown variables are allowed; malformed braces are not.
func ValidateTemplate(t *Template) error {
	if t == nil {
		return ErrInvalidTemplate
	}
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidTemplate)
	}
	if strings.TrimSpace(t.Body) == "" {
		return fmt.Errorf("%w: body cannot be empty", ErrInvalidTemplate)
	}
	if err := validate.Struct(t); err != nil {
		return fmt.Errorf("%w: name must be at most %d and body at most %d characters",
			ErrInvalidTemplate, maxNameLength, maxBodyLength)
	}

	stripped := placeholderPattern.ReplaceAllString(t.Body, "")
	if strings.Contains(stripped, "{{") || strings.Contains(stripped, "}}") {
		return fmt.Errorf("%w: body has an unterminated or malformed {{placeholder}}", ErrInvalidTemplate)
	}
	return nil
}

// ValidateRuleUpdate checks the fields a rule update sets.
func ValidateRuleUpdate(u RuleUpdate) error {
	if u.DelayMinutes != nil && (*u.DelayMinutes < 0 || *u.DelayMinutes > maxDelayMinutes) {
		return fmt.Errorf("%w: delayMinutes must be 0-%d", ErrInvalidRule, maxDelayMinutes)
	}
	if u.TemplateID != nil && strings.TrimSpace(*u.TemplateID) == "" && u.Active != nil && *u.Active {
		return fmt.Errorf("%w: an active rule needs a template", ErrInvalidRule)
	}
	return nil
}

// GenerateSlug creates a URL-safe slug from a template name.
// It lowercases, replaces spaces/underscores with hyphens, removes
// non-alphanumeric characters, and trims to maxSlugLength.
func GenerateSlug(name string) string {
	slug := strings.ToLower(name)
	slug = strings.ReplaceAll(slug, " ", "-")
	slug = strings.ReplaceAll(slug, "_", "-")

	var result strings.Builder
	for _, r := range slug {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			result.WriteRune(r)
		}
	}
	slug = result.String()

	slug = strings.Trim(slug, "-")
	for strings.Contains(slug, "--") {
		slug = strings.ReplaceAll(slug, "--", "-")
	}

	if len(slug) > maxSlugLength {
		slug = slug[:maxSlugLength]
		slug = strings.TrimRight(slug, "-")
	}
	return slug
}

// GenerateID creates a prefixed id for a queued message or template.
func GenerateID(prefix string) string {
	return prefix + "-" + uuid.NewString()
}
