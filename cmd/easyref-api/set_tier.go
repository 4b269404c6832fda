package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/easyref/easyref-api/internal/core/domain"
	"github.com/easyref/easyref-api/internal/core/service"
	"github.com/easyref/easyref-api/internal/pkg/config"
	"github.com/easyref/easyref-api/pkg/logger"
)

func newSetTierCmd() *cobra.Command {
	var profileID, tier, reason string

	cmd := &cobra.Command{
		Use:   "set-tier",
		Short: "Change the tier of a profile and record the reason",
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := domain.ParseTier(tier)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			cfg, err := config.Load(ctx)
			if err != nil {
				return err
			}
			log := logger.Init(logger.Options{Level: cfg.LogLevel, Pretty: true, Service: "easyref-api"})

			backend, closeBackend, err := openBackend(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer closeBackend()

			billing := service.NewBillingService(backend, nil, nil, service.BillingConfig{}, log)
			p, err := billing.SetTier(ctx, profileID, t, reason)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s) is now %s: %d referrals, %d tags\n",
				p.Username, p.ID, p.Tier, p.MaxReferrals, p.MaxTags)
			return nil
		},
	}

	cmd.Flags().StringVar(&profileID, "profile-id", "", "profile id")
	cmd.Flags().StringVar(&tier, "tier", "", "basic or premium")
	cmd.Flags().StringVar(&reason, "reason", "", "why the tier changes")
	_ = cmd.MarkFlagRequired("profile-id")
	_ = cmd.MarkFlagRequired("tier")
	_ = cmd.MarkFlagRequired("reason")
	return cmd
}

