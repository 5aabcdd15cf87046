package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/toaster/internal/model"
)

var iconCmd = &cobra.Command{
	Use:   "icon CLASS",
	Short: "Print the icon a toast class resolves to",
	Long: `Print the icon identifier shown for toasts of the given class.

  success-subtle  fas fa-check
  warning-subtle  fas fa-triangle-exclamation
  anything else   fas fa-xmark`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), model.ResolveIcon(args[0]))
		return err
	},
}

func init() {
	rootCmd.AddCommand(iconCmd)
}
