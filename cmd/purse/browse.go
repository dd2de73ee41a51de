package main

import (
	"github.com/Veraticus/purse/internal/tui"
	"github.com/Veraticus/purse/internal/tui/themes"
	"github.com/spf13/cobra"
)

func browseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Browse a user's transactions and budgets",
		Long: `Open a full-screen, read-only view of one user's ledger.

Tab switches between transactions and budgets, ? shows all keys, q quits.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			login, password, err := credentials(cmd)
			if err != nil {
				return err
			}
			settings, err := loadSettings()
			if err != nil {
				return err
			}

			a, err := openApp(cmd.Context(), settings)
			if err != nil {
				return err
			}
			defer a.close()

			session, err := a.login(cmd.Context(), login, password)
			if err != nil {
				return err
			}
			return tui.Run(cmd.Context(), session, cmd.InOrStdin(), cmd.OutOrStdout(),
				tui.WithTheme(themes.ByName(settings.Theme)))
		},
	}

	addCredentialFlags(cmd)

	return cmd
}
