package cmd

import (
	"context"
	"errors"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/zeu5/langlearn-rl/experiments/langlearn"
	"github.com/zeu5/langlearn-rl/store"
)

var errPoliciesNotFound = errors.New("one or both policies not found")

func EvaluateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "evaluate <policy> <policy>",
		Short: "Compare the mean reward of two stored policies",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, done := signalContext()
			defer done()

			records, err := loadPolicies(ctx, args)
			if err != nil {
				return err
			}
			cmp, err := langlearn.PrepareEvaluateComparison(flags, records, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			cmp.Out = cmd.ErrOrStderr()
			cmp.Run(ctx, 1, flags.RunConfig(flags.EvalEpisodes, true), flags.Parallelism)
			return nil
		},
	}
	return cmd
}

func PlotCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plot <policy> <policy>",
		Short: "Chart the cumulative reward per episode of two stored policies",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, done := signalContext()
			defer done()

			records, err := loadPolicies(ctx, args)
			if err != nil {
				return err
			}
			cmp, err := langlearn.PreparePlotComparison(flags, records)
			if err != nil {
				return err
			}
			cmp.Out = cmd.ErrOrStderr()
			cmp.Run(ctx, 1, flags.RunConfig(flags.PlotEpisodes, true), flags.Parallelism)
			log.WithField("path", flags.SavePath).Info("saved cumulative reward chart")
			return nil
		},
	}
	return cmd
}

func loadPolicies(ctx context.Context, names []string) ([]store.PolicyRecord, error) {
	s, err := openStore(ctx)
	if err != nil {
		return nil, err
	}
	defer closeStore(s)

	records, err := store.LoadPolicies(ctx, s, names...)
	if errors.Is(err, store.ErrPolicyNotFound) {
		log.WithError(err).Error(errPoliciesNotFound.Error())
		return nil, errPoliciesNotFound
	}
	return records, err
}
