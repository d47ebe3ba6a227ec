// Package prompt collects a download request interactively.
package prompt

import (
	"errors"
	"fmt"
	"strings"

	"mediadl/internal/errs"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
)

// Prompter asks the user for a single line of text.
// An empty answer yields def.
type Prompter interface {
	Input(message, def string) (string, error)
}

// Survey is a Prompter backed by terminal prompts.
type Survey struct {
	opts []survey.AskOpt
}

// NewSurvey creates a terminal Prompter. opts are passed to every prompt,
// e.g. survey.WithStdio to use other streams than the process stdio.
func NewSurvey(opts ...survey.AskOpt) *Survey {
	return &Survey{opts: opts}
}

// Input asks message and returns the trimmed answer.
// Ctrl+C is reported as errs.ErrCancelled.
func (s *Survey) Input(message, def string) (string, error) {
	var answer string

	err := survey.AskOne(&survey.Input{Message: message, Default: def}, &answer, s.opts...)
	if errors.Is(err, terminal.InterruptErr) {
		return "", errs.ErrCancelled
	}

	if err != nil {
		return "", fmt.Errorf("ask %q: %w", message, err)
	}

	return strings.TrimSpace(answer), nil
}
