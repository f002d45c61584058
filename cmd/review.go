package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/cv-verifier/internal/store"
)

const (
	PromptApprove    = "Approve"
	PromptReject     = "Reject"
	PromptPending    = "Back to pending"
	PromptFullResult = "Show full analysis"
	PromptExit       = "Exit"
)

var errExit = errors.New("exit requested")

var reviewCmd = &cobra.Command{
	Use:   "review <submission-id>",
	Short: "Show a stored analysis and decide on the submission",
	Args:  cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		review(args[0])
	},
}

func init() {
	rootCmd.AddCommand(reviewCmd)
}

func review(id string) {
	ctx := context.Background()
	e := newEnv()
	logger := e.logger

	st, err := e.openStore(ctx)
	if err != nil {
		logger.Fatal("opening the store", zap.Error(err))
	}
	defer st.Close()

	for {
		sub, err := st.GetSubmission(ctx, id)
		if err != nil {
			logger.Fatal("getting the submission", zap.String("submission_id", id), zap.Error(err))
		}

		logSubmission(logger, sub)

		prompt := promptui.Select{
			Label: fmt.Sprintf("Submission of %s is %s. Action?", sub.Candidate.FullName(), sub.Status),
			Items: []string{PromptApprove, PromptReject, PromptPending, PromptFullResult, PromptExit},
		}

		_, action, err := prompt.Run()
		if err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}

		if err := handleReview(ctx, st, logger, sub, action); err != nil {
			if errors.Is(err, errExit) {
				return
			}
			logger.Fatal("exiting", zap.Error(err))
		}
	}
}

func handleReview(ctx context.Context, st store.Store, logger *zap.Logger, sub *store.Submission, action string) error {
	switch action {
	case PromptApprove:
		return setStatus(ctx, st, logger, sub.ID, store.StatusApproved)
	case PromptReject:
		return setStatus(ctx, st, logger, sub.ID, store.StatusRejected)
	case PromptPending:
		return setStatus(ctx, st, logger, sub.ID, store.StatusPending)
	case PromptFullResult:
		if !sub.Analysed() {
			logger.Info("analysis is not finished yet")
			return nil
		}
		var pretty any
		if err := json.Unmarshal(sub.Result, &pretty); err != nil {
			return fmt.Errorf("decode stored analysis: %w", err)
		}
		out, _ := json.MarshalIndent(pretty, "", "  ")
		fmt.Println(string(out))
		return nil
	case PromptExit:
		logger.Info("exiting", zap.String("reason", "got exit from prompt"))
		return errExit
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

func setStatus(ctx context.Context, st store.Store, logger *zap.Logger, id string, status store.Status) error {
	if err := st.UpdateStatus(ctx, id, status); err != nil {
		return err
	}
	logger.Info("submission status updated", zap.String("submission_id", id), zap.String("status", string(status)))
	return nil
}

func logSubmission(logger *zap.Logger, sub *store.Submission) {
	fields := []zap.Field{
		zap.String("submission_id", sub.ID),
		zap.String("candidate", sub.Candidate.FullName()),
		zap.String("email", sub.Candidate.Email),
		zap.String("document", sub.DocumentPath),
		zap.String("status", string(sub.Status)),
	}
	switch {
	case sub.Error != "":
		fields = append(fields, zap.String("analysis_error", sub.Error))
	case sub.Score != nil:
		fields = append(fields, zap.Float64("risk_score", *sub.Score), zap.String("decision", sub.Decision))
	default:
		fields = append(fields, zap.String("analysis", "pending"))
	}
	logger.Info("submission", fields...)
}
