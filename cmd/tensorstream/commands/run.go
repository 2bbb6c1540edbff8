package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/haivivi/tensorstream/cmd/tensorstream/internal/config"
	"github.com/haivivi/tensorstream/pkg/aggregate"
	"github.com/haivivi/tensorstream/pkg/convert"
	"github.com/haivivi/tensorstream/pkg/filter"
	"github.com/haivivi/tensorstream/pkg/stream"
	"github.com/haivivi/tensorstream/pkg/tensor"
)

var flagRunConfig string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a pipeline described by a YAML config",
	Long: `Run a pipeline described by a YAML config.

The config names a raw media source, conversion parameters, an optional
aggregation window, an optional backend, and the sink.

Example:
  tensorstream run --config pipeline.yaml`,
	RunE: runPipeline,
}

func init() {
	runCmd.Flags().StringVarP(&flagRunConfig, "config", "c", "pipeline.yaml", "Pipeline config file")
}

func runPipeline(cmd *cobra.Command, args []string) error {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})))
	logger := slog.Default()

	cfg, err := config.Load(flagRunConfig)
	if err != nil {
		return err
	}
	format, err := cfg.Source.Format()
	if err != nil {
		return fmt.Errorf("source: %w", err)
	}

	conv, err := convert.New(cfg.FramesPerTensor)
	if err != nil {
		return err
	}

	p := &stream.Pipeline{Converter: conv, Log: logger}

	if cfg.Aggregate != nil {
		p.Aggregator, err = aggregate.New(aggregate.Config{
			FramesIn:    cfg.Aggregate.FramesIn,
			FramesOut:   cfg.Aggregate.FramesOut,
			FramesFlush: cfg.Aggregate.FramesFlush,
			Dim:         cfg.Aggregate.FramesDim,
		})
		if err != nil {
			return err
		}
	}

	if cfg.Filter != nil {
		p.Backend, err = filter.Open(cfg.Filter.Backend, cfg.Filter.Properties)
		if err != nil {
			return err
		}
		if cfg.Filter.Output != "" {
			desc, err := tensor.ParseCaps(cfg.Filter.Output)
			if err != nil {
				return fmt.Errorf("filter output: %w", err)
			}
			p.Output = &desc
		}
	}

	var dump *stream.DumpWriter
	if cfg.Sink.Dump != "" {
		out, err := os.Create(cfg.Sink.Dump)
		if err != nil {
			return err
		}
		defer out.Close()
		dump = stream.NewDumpWriter(out)
	}

	var dumpErr error
	p.Sink = &stream.Sink{
		SignalRate: cfg.Sink.SignalRate,
		OnStart: func() {
			logger.Info("stream started", "source", cfg.Source.Path)
		},
		OnData: func(b tensor.Buffer) {
			if dump != nil && dumpErr == nil {
				dumpErr = dump.Write(b)
			}
		},
		OnEOS: func() {
			logger.Info("stream finished")
		},
	}

	pushed, err := feedSource(cfg.Source.Path, format, cfg.Source.Samples, p.Push)
	if err != nil {
		return fmt.Errorf("run %s: %w", cfg.Source.Path, err)
	}
	p.Close()
	if dumpErr != nil {
		return fmt.Errorf("dump %s: %w", cfg.Sink.Dump, dumpErr)
	}

	logger.Info("pipeline finished",
		"buffers_in", pushed,
		"received", p.Sink.Received(),
		"delivered", p.Sink.Delivered())
	return nil
}
