package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/stratus-eo/stratus/auth"
)

var loginTimeout time.Duration

// loginCmd represents the login command
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in through the browser and store the resulting token",
	Long: `Start a one-shot OAuth login: print the authorization URL to open
in a browser, wait for the redirect on the local callback address, and
store the obtained token in the secret file.`,
	RunE: runLogin,
}

func init() {
	loginCmd.Flags().DurationVar(&loginTimeout, "timeout", 5*time.Minute, "how long to wait for the browser redirect")
	rootCmd.AddCommand(loginCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	flow, err := auth.NewLoginFlow(
		cfg.OAuth.ClientID,
		cfg.OAuth.AuthURL,
		cfg.OAuth.TokenURL,
		cfg.OAuth.CallbackAddr,
		logger,
	)
	if err != nil {
		return fmt.Errorf("failed to prepare login: %w", err)
	}

	fmt.Println("Open this URL in your browser to log in:")
	fmt.Println()
	fmt.Printf("  %s\n\n", flow.AuthURL())
	fmt.Println("Waiting for the browser redirect...")

	ctx, cancel := context.WithTimeout(context.Background(), loginTimeout)
	defer cancel()

	token, err := flow.Run(ctx)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	path, err := auth.SecretPath()
	if err != nil {
		return err
	}
	if err := auth.StoreToken(path, token.AccessToken); err != nil {
		return err
	}

	fmt.Printf("✓ Logged in, token stored in %s\n", path)
	return nil
}
