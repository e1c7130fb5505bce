package cmd

import (
	"errors"
	"fmt"
	"path"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/zeu5/langlearn-rl/experiments/langlearn"
	"github.com/zeu5/langlearn-rl/policies"
	"github.com/zeu5/langlearn-rl/render"
	"github.com/zeu5/langlearn-rl/util"
)

func SimulateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate <policy>",
		Short: "Watch a stored policy study",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			mode, err := render.ParseMode(flags.Render)
			if err != nil {
				return err
			}

			ctx, done := signalContext()
			defer done()

			records, err := loadPolicies(ctx, []string{name})
			if err != nil {
				return err
			}
			policy, err := policies.NewPolicy(records[0].Snapshot)
			if err != nil {
				return err
			}

			renderer, err := render.NewRenderer(mode)
			if err != nil {
				return err
			}
			defer renderer.Close()

			var recorder *render.GIFRecorder
			sinks := make([]render.FrameSink, 0, 1)
			if mode == render.ModeRGBArray {
				recorder = render.NewGIFRecorder(flags.GIFEvery, flags.GIFScale)
				sinks = append(sinks, recorder)
			}
			viewer := render.Viewer(renderer, sinks...)
			env := langlearn.NewSimulationEnvironment(flags.Seed, viewer)
			sim := langlearn.NewSimulation(ctx, env, policy, flags.Frames)

			printer := util.NewTerminalPrinter(cmd.ErrOrStderr(), 200*time.Millisecond)
			status := printer.NewOutput()
			printer.Start(ctx)
			step := func() error {
				err := sim.Step()
				status.TrySet(sim.Status())
				return err
			}

			if w, ok := renderer.(*render.Window); ok {
				err = w.Run(step)
			} else {
				for err = step(); err == nil; err = step() {
				}
			}
			status.Set(sim.Status())
			printer.Stop()
			if err != nil && !errors.Is(err, langlearn.ErrSimulationDone) {
				return err
			}
			if verr := viewer.Err(); verr != nil {
				log.WithError(verr).Warn("rendering failed")
			}

			returns := sim.Returns()
			log.WithFields(log.Fields{
				"policy":   name,
				"frames":   sim.Frame(),
				"episodes": len(returns),
			}).Info("simulation finished")
			for i, r := range returns {
				log.Debugf("episode %d: reward %.2f", i, r)
			}

			if recorder != nil {
				file := path.Join(flags.SavePath, "video", fmt.Sprintf("%s.gif", name))
				if err := recorder.Save(file); err != nil {
					return fmt.Errorf("saving video: %w", err)
				}
				log.WithField("path", file).Info("saved video")
			}
			return nil
		},
	}
	return cmd
}
