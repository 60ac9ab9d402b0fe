package utils

import (
	"errors"
	"fmt"
	"os"

	"github.com/AlecAivazis/survey/v2"
	"github.com/google/uuid"
	"golang.org/x/term"

	"github.com/picogrid/legion-rendezvous/pkg/logger"
)

// ErrDeclined is returned when the operator answers no at a gate
var ErrDeclined = errors.New("operator declined to continue")

// Gate pauses between maneuver phases until the operator confirms.
// Gates pass immediately when AssumeYes is set or stdin is not a terminal.
type Gate struct {
	AssumeYes   bool
	Interactive bool

	confirm func(message string) (bool, error)
}

// NewGate creates a gate that prompts on the terminal
func NewGate(assumeYes bool) *Gate {
	return &Gate{
		AssumeYes:   assumeYes || os.Getenv("LEGION_SKIP_PROMPTS") == "true",
		Interactive: term.IsTerminal(int(os.Stdin.Fd())),
		confirm:     surveyConfirm,
	}
}

// Wait blocks until the operator confirms message
func (g *Gate) Wait(message string) error {
	if g.AssumeYes || !g.Interactive {
		logger.Debugf("Skipping prompt: %s", message)
		return nil
	}

	ok, err := g.confirm(message)
	if err != nil {
		return fmt.Errorf("prompt failed: %w", err)
	}
	if !ok {
		return ErrDeclined
	}
	return nil
}

func surveyConfirm(message string) (bool, error) {
	prompt := &survey.Confirm{
		Message: message,
		Default: true,
	}

	var result bool
	if err := survey.AskOne(prompt, &result); err != nil {
		return false, err
	}
	return result, nil
}

// PromptOrganizationID asks for a Legion organization ID, offering def as the default
func PromptOrganizationID(def string) (string, error) {
	prompt := &survey.Input{
		Message: "Legion organization ID:",
		Default: def,
	}

	var result string
	err := survey.AskOne(prompt, &result, survey.WithValidator(survey.Required), survey.WithValidator(validateUUID))
	if err != nil {
		return "", err
	}
	return result, nil
}

func validateUUID(ans interface{}) error {
	s, ok := ans.(string)
	if !ok {
		return fmt.Errorf("expected a string")
	}
	if _, err := uuid.Parse(s); err != nil {
		return fmt.Errorf("invalid UUID: %w", err)
	}
	return nil
}
