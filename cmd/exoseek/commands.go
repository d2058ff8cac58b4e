package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/agenthands/exoseek/internal/config"
	"github.com/agenthands/exoseek/internal/core"
	"github.com/agenthands/exoseek/internal/form"
	"github.com/agenthands/exoseek/internal/inference"
	"github.com/agenthands/exoseek/internal/ingest"
	"github.com/agenthands/exoseek/internal/logger"
	"github.com/agenthands/exoseek/internal/schema"
	"github.com/agenthands/exoseek/internal/server"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
	apiURL     string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "exoseek",
		Short:         "Classify Kepler transit candidates against a remote model",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	defaultPath := os.Getenv("CONFIG_PATH")
	if defaultPath == "" {
		defaultPath = config.DefaultPath
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", defaultPath, "path to the TOML config file")
	cmd.PersistentFlags().StringVar(&opts.apiURL, "api-url", "", "classification service base URL (overrides config)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn or error")

	cmd.AddCommand(
		newSchemaCmd(),
		newPredictCmd(opts),
		newClassifyCmd(opts),
		newServeCmd(opts),
	)
	return cmd
}

func (o *rootOptions) load() (*config.Config, error) {
	_ = godotenv.Load()

	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return nil, err
	}
	if o.apiURL != "" {
		cfg.Service.BaseURL = o.apiURL
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// cliLogger logs to stderr so stdout stays clean for results.
func cliLogger(cfg *config.Config) (*logger.ZapLogger, error) {
	return logger.NewWithOutput(cfg.Log.Level, "stderr")
}

func newSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "List the features the classifier expects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "KEY\tLABEL\tDEFAULT\tSTEP")
			for _, d := range schema.Default().Descriptors() {
				fmt.Fprintf(tw, "%s\t%s\t%g\t%s\n", d.Key, d.Label, d.DefaultValue, d.Step)
			}
			return tw.Flush()
		},
	}
}

func newPredictCmd(opts *rootOptions) *cobra.Command {
	var sets []string

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Classify one candidate, starting from the default values",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			assignments, err := parseAssignments(sets)
			if err != nil {
				return err
			}
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			zl, err := cliLogger(cfg)
			if err != nil {
				return err
			}
			defer zl.Sync()

			m := form.New(schema.Default())
			for _, a := range assignments {
				if err := m.SetField(a.key, a.value); err != nil {
					return err
				}
			}

			client, err := inference.NewClient(cfg.Service, zl)
			if err != nil {
				return err
			}
			res, err := client.PredictOne(cmd.Context(), m.Submit())
			if err != nil {
				return err
			}
			return writePrediction(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().StringArrayVar(&sets, "set", nil, "feature override as key=value (repeatable)")
	return cmd
}

func newClassifyCmd(opts *rootOptions) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "classify FILE",
		Short: "Classify every row of a KOI CSV in one batch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			zl, err := cliLogger(cfg)
			if err != nil {
				return err
			}
			defer zl.Sync()

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}

			client, err := inference.NewClient(cfg.Service, zl)
			if err != nil {
				return err
			}
			s := schema.Default()
			svc := core.NewService(s, ingest.NewIngestor(s, cfg.Upload.MaxRows), client, zl)

			res, b, err := svc.Prepare(data)
			if err != nil {
				return err
			}
			if res.Truncated() {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s\n", res.Preview())
			}
			scoreErr := svc.Score(cmd.Context(), b)

			w := cmd.OutOrStdout()
			if out != "" {
				f, err := os.Create(out)
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", out, err)
				}
				defer f.Close()
				w = f
			}
			if err := writeResults(w, b); err != nil {
				return err
			}
			if scoreErr != nil {
				return scoreErr
			}

			sum := b.Summary()
			fmt.Fprintf(cmd.ErrOrStderr(), "scored %d rows: %d confirmed, %d false positive, %d errored\n",
				sum.Total, sum.Confirmed, sum.FalsePositive, sum.Errored)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "write results CSV here instead of stdout")
	return cmd
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			zl, err := logger.New(cfg.Log.Level)
			if err != nil {
				return err
			}
			defer zl.Sync()

			if cfg.Server.Mode != "" {
				gin.SetMode(cfg.Server.Mode)
			}
			srv, err := server.NewFromConfig(cfg, zl)
			if err != nil {
				return err
			}
			srv.CheckClassifier(context.Background())

			zl.Infof(cmd.Context(), "starting server on port %s", cfg.Server.Port)
			return srv.SetupRouter().Run(":" + cfg.Server.Port)
		},
	}
}

func writePrediction(w io.Writer, res inference.ClassificationResult) error {
	_, err := fmt.Fprintf(w, "Label:      %s\nConfidence: %s\nClass:      %d\n",
		res.Label, res.ConfidencePercent(), res.PredictionClass)
	return err
}
