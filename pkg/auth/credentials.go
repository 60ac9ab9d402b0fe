package auth

import (
	"fmt"
	"os"

	"github.com/AlecAivazis/survey/v2"
	"golang.org/x/term"
)

// Credentials are a Legion user's login
type Credentials struct {
	Email    string
	Password string
}

// CredentialsFromEnv reads LEGION_EMAIL and LEGION_PASSWORD
func CredentialsFromEnv() Credentials {
	return Credentials{
		Email:    os.Getenv("LEGION_EMAIL"),
		Password: os.Getenv("LEGION_PASSWORD"),
	}
}

// Complete reports whether both email and password are set
func (c Credentials) Complete() bool {
	return c.Email != "" && c.Password != ""
}

// PromptCredentials asks on the terminal for whatever c is missing.
// The password is read without echo.
func PromptCredentials(c Credentials) (Credentials, error) {
	if c.Email == "" {
		prompt := &survey.Input{Message: "Email:"}
		if err := survey.AskOne(prompt, &c.Email, survey.WithValidator(survey.Required)); err != nil {
			return c, err
		}
	}

	if c.Password == "" {
		fmt.Print("Password: ")
		password, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Println()
		if err != nil {
			return c, fmt.Errorf("failed to read password: %w", err)
		}
		c.Password = string(password)
	}

	return c, nil
}
