package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/prepaconcours/prepa-backend/internal/model"
	"github.com/prepaconcours/prepa-backend/internal/service"
	"github.com/spf13/cobra"
)

func (a *app) questionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "questions",
		Short: "Manage question banks",
	}

	importCmd := &cobra.Command{
		Use:   "import <file.json>",
		Short: "Upsert a question bank from a JSON array",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := readBank(args[0])
			if err != nil {
				return err
			}

			stores, err := a.store(cmd.Context())
			if err != nil {
				return err
			}
			svc := service.NewQuestionService(stores.Questions, a.redis(cmd.Context()), a.cfg.QuestionCacheTTL, a.log)

			n, err := svc.Import(cmd.Context(), items)
			var importErr *service.ImportError
			if errors.As(err, &importErr) {
				printImportErrors(cmd, importErr)
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d questions\n", n)
			return nil
		},
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print an exam's questions in serving order",
		RunE: func(cmd *cobra.Command, args []string) error {
			examType, _ := cmd.Flags().GetString("type")
			number, _ := cmd.Flags().GetInt("number")

			stores, err := a.store(cmd.Context())
			if err != nil {
				return err
			}
			svc := service.NewQuestionService(stores.Questions, nil, 0, a.log)

			questions, err := svc.FetchExam(cmd.Context(), examType, number)
			if err != nil {
				return err
			}
			return printJSON(cmd, questions)
		},
	}
	examFlags(showCmd)

	cmd.AddCommand(importCmd, showCmd)
	return cmd
}

func readBank(path string) ([]model.ImportQuestion, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read bank: %w", err)
	}
	var items []model.ImportQuestion
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decode bank %s: %w", path, err)
	}
	return items, nil
}

func printImportErrors(cmd *cobra.Command, e *service.ImportError) {
	idx := make([]int, 0, len(e.Fields))
	for i := range e.Fields {
		idx = append(idx, i)
	}
	sort.Ints(idx)

	out := cmd.ErrOrStderr()
	for _, i := range idx {
		for field, msg := range e.Fields[i] {
			fmt.Fprintf(out, "  entry %d: %s: %s\n", i, field, msg)
		}
	}
}

func examFlags(cmd *cobra.Command) {
	cmd.Flags().String("type", "", "exam type, e.g. CM")
	cmd.Flags().Int("number", 0, "mock exam number")
	_ = cmd.MarkFlagRequired("type")
	_ = cmd.MarkFlagRequired("number")
}
