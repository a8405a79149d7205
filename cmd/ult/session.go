package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/j-veylop/usage-ledger-tui/internal/services/auth"
	"github.com/j-veylop/usage-ledger-tui/internal/version"
)

var flagDisplayName string

var loginCmd = &cobra.Command{
	Use:   "login <email>",
	Short: "Sign in so every client with the same email shares one ledger",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return login(os.Stdout, cfg.SessionPath, args[0], flagDisplayName)
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and go back to the local ledger",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return logout(os.Stdout, cfg.SessionPath)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Println(version.Info())
	},
}

func init() {
	loginCmd.Flags().StringVar(&flagDisplayName, "name", "", "Display name shown in the dashboard")
	rootCmd.AddCommand(loginCmd, logoutCmd, versionCmd)
}

func login(w io.Writer, path, email, displayName string) (err error) {
	p, err := auth.Load(path)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, p.Close()) }()

	user, err := p.SignIn(email, displayName)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Signed in as %s (ledger %s)\n", user.Name(), user.ID)
	return nil
}

func logout(w io.Writer, path string) (err error) {
	p, err := auth.Load(path)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, p.Close()) }()

	user, _ := p.CurrentUser(context.Background())
	if err := p.SignOut(); err != nil {
		return err
	}
	if user == nil {
		fmt.Fprintln(w, "Not signed in.")
		return nil
	}
	fmt.Fprintf(w, "Signed out %s.\n", user.Name())
	return nil
}
