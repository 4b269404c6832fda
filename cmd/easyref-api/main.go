// @title           easyref API
// @version         1.0
// @description     Referral link pages for creators: profiles, referrals, tags, themes and premium upgrades.
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in              header
// @name            Authorization
package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "easyref-api",
		Short:        "easyref referral pages backend",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(newServeCmd(), newSetTierCmd())

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
