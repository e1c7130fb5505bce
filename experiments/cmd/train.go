package cmd

import (
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/zeu5/langlearn-rl/experiments/langlearn"
	"github.com/zeu5/langlearn-rl/policies"
	"github.com/zeu5/langlearn-rl/store"
)

var defaultTrainKinds = []string{policies.KindQLearning, policies.KindReinforce}

func TrainCommand() *cobra.Command {
	var names []string
	cmd := &cobra.Command{
		Use:       "train [kind...]",
		Short:     "Train policies and store them",
		Long:      "Train policies of the given kinds (default qlearning and reinforce) and store each under its kind or --name.",
		ValidArgs: policies.Kinds(),
		RunE: func(cmd *cobra.Command, args []string) error {
			kinds := args
			if len(kinds) == 0 {
				kinds = defaultTrainKinds
			}
			if len(names) == 0 {
				names = kinds
			}
			cmp, err := langlearn.PrepareTrainComparison(flags, kinds, names)
			if err != nil {
				return err
			}
			cmp.Out = cmd.OutOrStdout()

			ctx, done := signalContext()
			defer done()

			s, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer closeStore(s)

			results := cmp.Run(ctx, flags.NumRuns, flags.RunConfig(flags.Episodes, false), flags.Parallelism)
			if len(results) == 0 {
				return errors.New("training interrupted before the first run finished")
			}
			// the policies of the last run are the ones kept
			last := results[len(results)-1]
			snapshots := langlearn.TrainedSnapshots(last)
			for _, name := range names {
				snapshot, ok := snapshots[name]
				if !ok {
					entry := log.WithField("policy", name)
					if r, ok := last[name]; ok {
						entry = entry.WithError(r.Error)
					}
					entry.Error("training failed, policy not saved")
					continue
				}
				runID := store.NewRunID()
				if err := s.SavePolicy(ctx, store.NewPolicyRecord(name, runID, snapshot)); err != nil {
					return fmt.Errorf("saving %s: %w", name, err)
				}
				history := store.NewRewardHistory(runID, name, langlearn.Returns(last, name))
				if err := s.SaveRewardHistory(ctx, history); err != nil {
					return fmt.Errorf("saving reward history of %s: %w", name, err)
				}
				log.WithFields(log.Fields{
					"policy":   name,
					"run_id":   runID,
					"episodes": snapshot.Episodes,
				}).Info("saved policy")
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&names, "name", nil, "Names to store the trained policies under, one per kind")
	return cmd
}
