package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/cv-verifier/internal/dispatch"
	"github.com/spigell/cv-verifier/internal/pipeline"
	"github.com/spigell/cv-verifier/internal/store"
)

var submitCmd = &cobra.Command{
	Use:   "submit <file>",
	Short: "Register a candidate submission and analyse it in the background",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		submit(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(submitCmd)

	submitCmd.Flags().String("first-name", "", "candidate first name")
	submitCmd.Flags().String("middle-name", "", "candidate middle name")
	submitCmd.Flags().String("last-name", "", "candidate last name")
	submitCmd.Flags().String("email", "", "candidate email")
	submitCmd.Flags().String("phone", "", "candidate phone")
	submitCmd.Flags().String("national-id", "", "candidate national id")
}

func submit(cmd *cobra.Command, file string) {
	ctx := context.Background()
	e := newEnv()
	logger := e.logger

	candidate := store.Candidate{
		FirstName:  flagString(cmd, "first-name"),
		MiddleName: flagString(cmd, "middle-name"),
		LastName:   flagString(cmd, "last-name"),
		Email:      flagString(cmd, "email"),
		Phone:      flagString(cmd, "phone"),
		NationalID: flagString(cmd, "national-id"),
	}
	if candidate.FullName() == "" {
		logger.Fatal("candidate name is required", zap.String("hint", "set --first-name and --last-name"))
	}

	st, err := e.openStore(ctx)
	if err != nil {
		logger.Fatal("opening the store", zap.Error(err))
	}
	defer st.Close()

	p, err := e.newPipeline(ctx)
	if err != nil {
		logger.Fatal("building the pipeline", zap.Error(err))
	}

	sub, err := st.CreateSubmission(ctx, candidate, file)
	if err != nil {
		logger.Fatal("creating a submission", zap.Error(err))
	}

	d := dispatch.New(p, st, e.cfg.Workers.Slots, e.cfg.Workers.RunTimeout, logger)
	d.Submit(pipeline.Input{
		SubmissionID:  sub.ID,
		CandidateName: candidate.FullName(),
		Path:          file,
	})

	fmt.Println(sub.ID)
	logger.Info("submission registered; analysis is running", zap.String("submission_id", sub.ID))

	d.Wait()
}

func flagString(cmd *cobra.Command, name string) string {
	v, _ := cmd.Flags().GetString(name)
	return strings.TrimSpace(v)
}
