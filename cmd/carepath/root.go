package main

import (
	"fmt"
	"os"

	"github.com/aretw0/carepath/internal/config"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "carepath",
	Short: "Carepath runs the patient portal subscription wizards",
	Long: `Carepath serves the subscription management wizards (cancel, pause, adjust quantity)
and the CRM authentication gateway used by the patient portal.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	config.RegisterFlags(rootCmd)
}
