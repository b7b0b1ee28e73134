package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aretw0/carepath/pkg/crm"
	"github.com/spf13/cobra"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Probe the CRM login endpoints",
	Long: `Authenticates against the configured CRM host, trying each candidate login endpoint in order,
and reports which endpoint issued a token. The token itself is not printed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		out := cmd.OutOrStdout()
		session, err := a.crm.Authenticate(cmd.Context())
		if err != nil {
			var authErr *crm.AuthError
			if errors.As(err, &authErr) && len(authErr.TriedEndpoints) > 0 {
				fmt.Fprintf(out, "Tried: %s\n", strings.Join(authErr.TriedEndpoints, ", "))
			}
			return err
		}

		fmt.Fprintf(out, "Authenticated via %s (token %d chars)\n", session.EndpointUsed, len(session.Token))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(authCmd)
}
