package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func newAccountCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Manage the account",
	}

	var force bool

	deleteCmd := &cobra.Command{
		Use:   "delete",
		Short: "Permanently delete the account and all server-side data",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAccountDelete(cmd, force)
		},
	}
	deleteCmd.Flags().BoolVar(&force, "force", false, "skip the confirmation prompt")

	cmd.AddCommand(deleteCmd)

	return cmd
}

func runAccountDelete(cmd *cobra.Command, force bool) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if !force {
		fmt.Fprint(os.Stderr, "This permanently deletes the account and all its plants. Type 'delete' to confirm: ")

		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil {
			return fmt.Errorf("reading confirmation: %w", err)
		}

		if strings.TrimSpace(line) != "delete" {
			return fmt.Errorf("aborted")
		}
	}

	ctx := shutdownContext(context.Background(), a.logger)

	if err := a.client.DeleteAccount(ctx); err != nil {
		return err
	}

	// Server-side data is gone; drop everything local too.
	if err := a.creds.Clear(); err != nil {
		return err
	}

	if err := a.store.Clear(ctx); err != nil {
		return err
	}

	statusf("Account deleted.\n")

	return nil
}
