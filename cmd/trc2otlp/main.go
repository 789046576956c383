// Command trc2otlp converts FreeRTOS trace-recorder captures to OpenTelemetry
// traces, exported over OTLP/HTTP.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"trc2otlp/internal/attributes"
	"trc2otlp/internal/config"
	"trc2otlp/internal/convert"
	"trc2otlp/internal/eventstream"
	"trc2otlp/internal/otel"
	"trc2otlp/internal/recorder"
	"trc2otlp/internal/sink"
	"trc2otlp/internal/timesync"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func run() error {
	// Parse command line arguments
	cfg, err := config.ParseArgs(os.Args)
	if err != nil {
		return err
	}

	opts := config.DefaultOptions()
	if cfg.OptionsFile != "" {
		opts, err = config.LoadOptions(cfg.OptionsFile)
		if err != nil {
			return err
		}
	}
	if cfg.TraceName != "" {
		opts.TraceName = cfg.TraceName
	}
	if cfg.ClockName != "" {
		opts.ClockName = cfg.ClockName
	}

	// Parse OTEL configuration from environment
	otelCfg, err := config.ParseOTELConfig()
	if err != nil {
		return fmt.Errorf("failed to parse OTEL config: %w", err)
	}

	// Initialize OTEL provider; this must succeed before any decoding work.
	tp, err := otel.InitProvider(otelCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize OTEL provider: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otel.ShutdownProvider(tp, shutdownCtx); err != nil {
			log.Printf("Error shutting down OTEL provider: %v", err)
		}
	}()

	tracer := tp.Tracer("trc2otlp")

	var evaluator *attributes.Evaluator
	if len(opts.Attributes) > 0 {
		evaluator, err = attributes.NewEvaluator(opts.Attributes)
		if err != nil {
			return err
		}
	}

	log.Printf("Reading header info from %s", cfg.Input)
	file, err := os.Open(cfg.Input)
	if err != nil {
		return err
	}
	defer file.Close()

	dec, err := recorder.NewDecoder(file)
	if err != nil {
		return err
	}
	hdr := dec.Header()

	// The capture carries no absolute time; anchor the reconstructed
	// timeline at processing start.
	creation := time.Now()
	clock := timesync.NewWallClock(creation, uint64(hdr.TimerFrequency))

	baseAttrs := []attribute.KeyValue{
		attribute.String("clock.name", opts.ClockName),
		attribute.Int64("clock.frequency_hz", int64(hdr.TimerFrequency)),
		attribute.String("trc.platform", hdr.Platform),
		attribute.Int("trc.format_version", int(hdr.FormatVersion)),
		attribute.String("trc.endianness", "little"),
		attribute.Int("trc.timer_bits", int(hdr.TimerBits)),
		attribute.String("input.file", filepath.Base(cfg.Input)),
		attribute.String("trace.creation_datetime", creation.UTC().Format(time.RFC3339)),
	}

	out := sink.NewOTLP(tracer, clock, opts.TraceName, baseAttrs, evaluator)
	conv := convert.New(out, opts.DefaultChannel)
	stream := eventstream.New(dec, out, conv)

	// Shutdown signals cancel between events; an in-flight event is never
	// cut short.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return stream.Run(ctx)
	})
	if err := g.Wait(); err != nil {
		return err
	}

	log.Printf("Done")
	return nil
}
