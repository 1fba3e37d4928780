package main

import (
	"fmt"
	"time"

	"github.com/prepaconcours/prepa-backend/internal/service"
	"github.com/spf13/cobra"
)

func (a *app) tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a signed development token",
		RunE: func(cmd *cobra.Command, args []string) error {
			user, _ := cmd.Flags().GetString("user")
			plan, _ := cmd.Flags().GetString("plan")
			ttl, _ := cmd.Flags().GetDuration("ttl")

			if plan != string(service.PlanFree) && plan != string(service.PlanPremium) {
				return fmt.Errorf("unknown plan %q", plan)
			}

			token, err := service.NewAuthService(a.cfg).IssueToken(user, service.Plan(plan), ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().String("user", "", "user id (token subject)")
	cmd.Flags().String("plan", string(service.PlanFree), "free or premium")
	cmd.Flags().Duration("ttl", 24*time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
