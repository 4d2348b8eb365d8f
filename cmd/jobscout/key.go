package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonathan/jobscout/internal/config"
	"github.com/jonathan/jobscout/internal/server"
)

var keyCmd = &cobra.Command{
	Use:   "key",
	Short: "Manage the Gemini API key stored in the OS keychain",
}

var keySetCmd = &cobra.Command{
	Use:   "set [api-key]",
	Short: "Store the API key (read from stdin when not given)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key := ""
		if len(args) == 1 {
			key = args[0]
		} else {
			_, _ = fmt.Fprint(cmd.ErrOrStderr(), "API key: ")
			var err error
			if key, err = readLine(cmd.InOrStdin()); err != nil {
				return err
			}
		}
		if err := config.SetAPIKey(key); err != nil {
			return fmt.Errorf("failed to store API key: %w", err)
		}
		_, err := fmt.Fprintln(cmd.OutOrStdout(), "API key stored in keychain")
		return err
	},
}

var keyStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report whether a key is stored, showing only its last characters",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		key, err := config.GetAPIKey()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "API key stored: %s\n", mask(key))
		return err
	},
}

var keyDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Remove the stored API key",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := config.DeleteAPIKey(); err != nil {
			return fmt.Errorf("failed to delete API key: %w", err)
		}
		_, err := fmt.Fprintln(cmd.OutOrStdout(), "API key removed from keychain")
		return err
	},
}

var tokenCmd = &cobra.Command{
	Use:   "token <client-name>",
	Short: "Issue a bearer token for an API client (requires JWT_SECRET)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		jwtCfg, err := config.NewJWTConfig()
		if err != nil {
			return err
		}
		token, err := server.NewJWTService(jwtCfg).GenerateToken(args[0])
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
		return err
	},
}

func init() {
	keyCmd.AddCommand(keySetCmd, keyStatusCmd, keyDeleteCmd)
	rootCmd.AddCommand(keyCmd, tokenCmd)
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read API key: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// mask keeps the last four characters of a secret.
func mask(s string) string {
	if len(s) <= 4 {
		return strings.Repeat("*", len(s))
	}
	return strings.Repeat("*", len(s)-4) + s[len(s)-4:]
}
