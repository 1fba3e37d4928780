package main

import (
	"fmt"
	"time"

	"github.com/prepaconcours/prepa-backend/internal/service"
	"github.com/spf13/cobra"
)

func (a *app) attemptsService(cmd *cobra.Command) (*service.AttemptService, error) {
	stores, err := a.store(cmd.Context())
	if err != nil {
		return nil, err
	}

	var drafts service.DraftClearer
	if rdb := a.redis(cmd.Context()); rdb != nil {
		drafts = service.NewDraftService(rdb, a.cfg.ExamDuration)
	}
	return service.NewAttemptService(stores.Attempts, drafts, a.log), nil
}

func (a *app) attemptsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "attempts",
		Short: "Inspect stored attempts",
	}
	cmd.PersistentFlags().String("user", "", "user id")
	_ = cmd.MarkPersistentFlagRequired("user")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List a user's attempts",
		RunE: func(cmd *cobra.Command, args []string) error {
			user, _ := cmd.Flags().GetString("user")
			svc, err := a.attemptsService(cmd)
			if err != nil {
				return err
			}

			attempts, err := svc.List(cmd.Context(), user)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, s := range attempts {
				fmt.Fprintf(out, "%s %s-%d  %3d%%  %s\n",
					s.ID, s.ExamType, s.ExamNumber, s.Overall, s.CompletedAt.Format(time.RFC3339))
			}
			return nil
		},
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print a reconstructed attempt",
		RunE: func(cmd *cobra.Command, args []string) error {
			user, _ := cmd.Flags().GetString("user")
			examType, _ := cmd.Flags().GetString("type")
			number, _ := cmd.Flags().GetInt("number")

			svc, err := a.attemptsService(cmd)
			if err != nil {
				return err
			}
			attempt, err := svc.Load(cmd.Context(), user, examType, number)
			if err != nil {
				return err
			}
			return printJSON(cmd, attempt)
		},
	}
	examFlags(showCmd)

	deleteCmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete an attempt so the exam can be retaken",
		RunE: func(cmd *cobra.Command, args []string) error {
			user, _ := cmd.Flags().GetString("user")
			examType, _ := cmd.Flags().GetString("type")
			number, _ := cmd.Flags().GetInt("number")

			svc, err := a.attemptsService(cmd)
			if err != nil {
				return err
			}
			if err := svc.Delete(cmd.Context(), user, examType, number); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s-%d for %s\n", examType, number, user)
			return nil
		},
	}
	examFlags(deleteCmd)

	progressCmd := &cobra.Command{
		Use:   "progress",
		Short: "Print a user's aggregated progress",
		RunE: func(cmd *cobra.Command, args []string) error {
			user, _ := cmd.Flags().GetString("user")
			svc, err := a.attemptsService(cmd)
			if err != nil {
				return err
			}
			progress, err := svc.Progress(cmd.Context(), user)
			if err != nil {
				return err
			}
			return printJSON(cmd, progress)
		},
	}

	cmd.AddCommand(listCmd, showCmd, deleteCmd, progressCmd)
	return cmd
}
