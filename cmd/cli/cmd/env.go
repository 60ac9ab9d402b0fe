package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"github.com/picogrid/legion-rendezvous/pkg/config"
	"github.com/picogrid/legion-rendezvous/pkg/logger"
)

var envCmd = &cobra.Command{
	Use:   "env",
	Short: "Manage Legion environments",
	Long: `Manage the Legion environment profiles that 'rendezvous run --env' publishes
agent tracks to. Profiles are stored in ~/.legion-rendezvous/environments.yaml.`,
}

var envListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured environments",
	RunE:  listEnvironments,
}

var envAddCmd = &cobra.Command{
	Use:   "add [name]",
	Short: "Add or replace an environment",
	Args:  cobra.MaximumNArgs(1),
	RunE:  addEnvironment,
}

var envRemoveCmd = &cobra.Command{
	Use:   "remove [name]",
	Short: "Remove an environment",
	Args:  cobra.MaximumNArgs(1),
	RunE:  removeEnvironment,
}

func init() {
	envAddCmd.Flags().String("url", "", "Legion API URL")
	envAddCmd.Flags().String("api-key-env", "", "environment variable holding the API key (empty for OAuth login)")
	envAddCmd.Flags().String("org-id", "", "Legion organization ID")

	envCmd.AddCommand(envListCmd)
	envCmd.AddCommand(envAddCmd)
	envCmd.AddCommand(envRemoveCmd)
}

func listEnvironments(_ *cobra.Command, _ []string) error {
	envs, err := config.LoadEnvironments()
	if err != nil {
		return fmt.Errorf("failed to load environments: %w", err)
	}

	if len(envs.Environments) == 0 {
		fmt.Println("No environments configured")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "NAME\tURL\tAUTHENTICATION\tORGANIZATION")
	_, _ = fmt.Fprintln(w, "----\t---\t--------------\t------------")

	for _, env := range envs.Environments {
		authInfo := "OAuth (Interactive)"
		if env.APIKeyEnv != "" {
			authInfo = fmt.Sprintf("API Key ($%s)", env.APIKeyEnv)
		}
		org := env.OrganizationID
		if org == "" {
			org = "-"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", env.Name, env.URL, authInfo, org)
	}

	return w.Flush()
}

func addEnvironment(cmd *cobra.Command, args []string) error {
	path, err := config.EnvironmentsPath()
	if err != nil {
		return err
	}
	envs, err := config.LoadEnvironmentsFromFile(path)
	if err != nil {
		return fmt.Errorf("failed to load environments: %w", err)
	}

	var env config.Environment
	if len(args) == 1 {
		env.Name = args[0]
	}
	env.URL, _ = cmd.Flags().GetString("url")
	env.APIKeyEnv, _ = cmd.Flags().GetString("api-key-env")
	env.OrganizationID, _ = cmd.Flags().GetString("org-id")

	if env.Name == "" {
		prompt := &survey.Input{Message: "Environment name:"}
		if err := survey.AskOne(prompt, &env.Name, survey.WithValidator(survey.Required)); err != nil {
			return err
		}
	}
	if env.URL == "" {
		prompt := &survey.Input{Message: "Legion API URL:", Default: "https://legion.example.com"}
		if err := survey.AskOne(prompt, &env.URL, survey.WithValidator(survey.Required)); err != nil {
			return err
		}
	}

	if err := envs.Add(env); err != nil {
		return err
	}
	if err := config.SaveEnvironmentsToFile(envs, path); err != nil {
		return err
	}

	logger.Successf("Environment %s saved", env.Name)
	return nil
}

func removeEnvironment(_ *cobra.Command, args []string) error {
	path, err := config.EnvironmentsPath()
	if err != nil {
		return err
	}
	envs, err := config.LoadEnvironmentsFromFile(path)
	if err != nil {
		return fmt.Errorf("failed to load environments: %w", err)
	}

	var name string
	if len(args) == 1 {
		name = args[0]
	} else {
		if len(envs.Environments) == 0 {
			return fmt.Errorf("no environments configured")
		}
		options := make([]string, len(envs.Environments))
		for i, env := range envs.Environments {
			options[i] = env.Name
		}
		prompt := &survey.Select{Message: "Select environment to remove:", Options: options}
		if err := survey.AskOne(prompt, &name); err != nil {
			return err
		}
	}

	if err := envs.Remove(name); err != nil {
		return err
	}
	if err := config.SaveEnvironmentsToFile(envs, path); err != nil {
		return err
	}

	logger.Successf("Environment %s removed", name)
	return nil
}
