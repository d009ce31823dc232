// Respira - Breathing Session Mood Prediction and Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/respira

// Command respiractl trains, inspects and queries the mood model offline.
//
// It reads the same configuration as the server (config.yaml and the
// environment) and operates on the artifact and session log directly. The
// ingest WAL is never opened, so respiractl can run beside a live server.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/tomtom215/respira/internal/app"
	"github.com/tomtom215/respira/internal/config"
	"github.com/tomtom215/respira/internal/logging"
	"github.com/tomtom215/respira/internal/mood"
)

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

type rootOptions struct {
	modelPath string
	logPath   string
	logLevel  string
}

func newRootCmd(out io.Writer) *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "respiractl",
		Short:         "respiractl - offline tooling for the Respira mood model",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.SetOut(out)
	root.PersistentFlags().StringVar(&opts.modelPath, "model", "", "model artifact path (overrides MODEL_PATH)")
	root.PersistentFlags().StringVar(&opts.logPath, "sessions", "", "session log path (overrides SESSION_LOG_PATH)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level")

	root.AddCommand(
		newTrainCmd(opts),
		newPredictCmd(opts),
		newScheduleCmd(opts),
		newIngestCmd(opts),
		newStatusCmd(opts),
	)
	return root
}

// components loads configuration, applies flag overrides and builds the graph.
func (o *rootOptions) components() (*app.Components, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if o.modelPath != "" {
		cfg.Model.ArtifactPath = o.modelPath
	}
	if o.logPath != "" {
		cfg.Dataset.LogPath = o.logPath
	}
	logging.Init(logging.Config{Level: o.logLevel, Format: "console", Output: os.Stderr})
	return app.New(cfg, app.Options{})
}

func newTrainCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "train",
		Short: "Retrain the model from the full session log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.components()
			if err != nil {
				return err
			}
			defer closeComponents(c)
			report, err := c.DirectRunner().RunBatch(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), report)
		},
	}
}

func newPredictCmd(opts *rootOptions) *cobra.Command {
	var in mood.PredictionInput
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Predict the post-session mood for one session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.components()
			if err != nil {
				return err
			}
			defer closeComponents(c)
			label, err := c.Predictor.PredictInput(cmd.Context(), in)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]int{"mood": int(label)})
		},
	}
	cmd.Flags().Float64Var(&in.DurationSeconds, "duration", 300, "session duration in seconds")
	cmd.Flags().IntVar(&in.TechniqueID, "technique", 1, "technique id")
	cmd.Flags().StringVar(&in.Hour, "hour", "", "time of day, HH:MM or hours")
	cmd.Flags().StringVar(&in.Day, "day", "", "weekday 0-6 (Monday=0) or YYYY-MM-DD")
	_ = cmd.MarkFlagRequired("hour")
	_ = cmd.MarkFlagRequired("day")
	return cmd
}

func newScheduleCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "schedule FILE",
		Short: "Build a schedule for the sessions in a JSON file",
		Long: "Build a schedule for the sessions in a JSON file (\"-\" reads stdin).\n" +
			"Training runs inline according to the session count tier.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sessions, err := readSessions(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			c, err := opts.components()
			if err != nil {
				return err
			}
			defer closeComponents(c)
			rec, err := c.Coordinator(c.DirectRunner()).Recommend(cmd.Context(), sessions)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), rec)
		},
	}
}

func newIngestCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ingest FILE",
		Short: "Validate sessions from a JSON file and append them to the log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sessions, err := readSessions(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			c, err := opts.components()
			if err != nil {
				return err
			}
			defer closeComponents(c)
			res, err := c.Pipeline.Ingest(cmd.Context(), sessions)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
}

func newStatusCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the stored model metadata",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.components()
			if err != nil {
				return err
			}
			defer closeComponents(c)
			status, err := c.Status.Status(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), status)
		},
	}
}

// readSessions decodes a JSON array of sessions from path, or stdin for "-".
func readSessions(stdin io.Reader, path string) ([]mood.Session, error) {
	r := stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close() //nolint:errcheck // read-only file
		r = f
	}
	var sessions []mood.Session
	if err := json.NewDecoder(r).Decode(&sessions); err != nil {
		return nil, fmt.Errorf("decode sessions: %w", err)
	}
	return sessions, nil
}

// closeComponents releases the WAL handle when one is open. A close failure
// after the command has run is logged rather than returned.
func closeComponents(c *app.Components) {
	if err := c.Close(); err != nil {
		logging.Error().Err(err).Msg("Error closing components")
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

