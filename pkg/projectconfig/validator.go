package projectconfig

import (
	"fmt"
	"regexp"

	"github.com/bmatcuk/doublestar/v4"
)

var projectKeyPattern = regexp.MustCompile(`^[A-Z0-9_]+$`)

// Validate checks the values of a project file
func Validate(config *ProjectConfig) error {
	if config.Project != "" && !projectKeyPattern.MatchString(config.Project) {
		return fmt.Errorf("`project` must be a CDS project key (uppercase letters, digits and _), got %q", config.Project)
	}

	if config.Job != "" && !doublestar.ValidatePattern(config.Job) {
		return fmt.Errorf("`job` is not a valid pattern: %q", config.Job)
	}

	switch config.Format {
	case "", "text", "html":
	default:
		return fmt.Errorf("`format` must be text or html, got %q", config.Format)
	}

	return nil
}
