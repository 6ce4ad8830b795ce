package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/gardenlab/sprout/internal/auth"
)

func newLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Exchange the identity session for a service credential",
		Long: "Exchanges the identity assertion (from the configured identity file or " +
			"the " + auth.EnvIdentityToken + " environment variable) for a bearer credential.",
		RunE: runLogin,
	}
}

func newRegisterCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "register",
		Short: "Create a new account",
		RunE:  runRegister,
	}
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the saved credential and clear the local cache",
		RunE:  runLogout,
	}
}

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Display the authenticated user",
		RunE:  runWhoami,
	}
}

func runLogin(_ *cobra.Command, _ []string) error {
	a, err := newAuthApp()
	if err != nil {
		return err
	}

	cred, err := a.tokens.Refresh(context.Background())
	if err != nil {
		if errors.Is(err, auth.ErrNoIdentity) {
			return fmt.Errorf("no identity session found; set %s or configure server.identity_file: %w",
				auth.EnvIdentityToken, err)
		}

		return err
	}

	statusf("Logged in as %s.\n", displayName(cred.DisplayName, cred.OwnerID))

	return nil
}

func runRegister(cmd *cobra.Command, _ []string) error {
	a, err := newAuthApp()
	if err != nil {
		return err
	}

	email, password, name, err := promptRegistration(cmd)
	if err != nil {
		return err
	}

	cred, err := a.client.Register(context.Background(), email, password, name)
	if err != nil {
		return err
	}

	if err := a.creds.Save(cred); err != nil {
		return err
	}

	statusf("Account created. Logged in as %s.\n", displayName(cred.DisplayName, cred.OwnerID))

	return nil
}

// promptRegistration reads email, password, and display name interactively.
// The password never echoes.
func promptRegistration(cmd *cobra.Command) (email, password, name string, err error) {
	reader := bufio.NewReader(cmd.InOrStdin())

	fmt.Fprint(os.Stderr, "Email: ")

	email, err = reader.ReadString('\n')
	if err != nil {
		return "", "", "", fmt.Errorf("reading email: %w", err)
	}

	email = strings.TrimSpace(email)

	fmt.Fprint(os.Stderr, "Password: ")

	pw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)

	if err != nil {
		return "", "", "", fmt.Errorf("reading password: %w", err)
	}

	fmt.Fprint(os.Stderr, "Display name: ")

	name, err = reader.ReadString('\n')
	if err != nil {
		return "", "", "", fmt.Errorf("reading display name: %w", err)
	}

	return email, string(pw), strings.TrimSpace(name), nil
}

func runLogout(_ *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.creds.Clear(); err != nil {
		return err
	}

	// Cached garden data belongs to the session.
	if err := a.store.Clear(context.Background()); err != nil {
		return err
	}

	statusf("Logged out.\n")

	return nil
}

// whoamiOutput is the JSON schema for `whoami --json`.
type whoamiOutput struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

func runWhoami(_ *cobra.Command, _ []string) error {
	a, err := newAuthApp()
	if err != nil {
		return err
	}

	cred, err := a.creds.Load()
	if err != nil {
		return err
	}

	if cred == nil {
		return errors.New("not logged in")
	}

	if flagJSON {
		return json.NewEncoder(os.Stdout).Encode(whoamiOutput{
			ID:          cred.OwnerID,
			DisplayName: cred.DisplayName,
		})
	}

	fmt.Printf("%s (%s)\n", displayName(cred.DisplayName, cred.OwnerID), cred.OwnerID)

	return nil
}

func displayName(name, fallback string) string {
	if name != "" {
		return name
	}

	return fallback
}
