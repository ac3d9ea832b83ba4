package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/glimte/interim-go/config"
	"github.com/glimte/interim-go/internal/reliability"
	"github.com/glimte/interim-go/internal/telemetry"
	"github.com/glimte/interim-go/invocation"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
)

var (
	// Version information
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

const serviceName = "interim"

type globalFlags struct {
	configPath   string
	amqpURL      string
	logLevel     string
	otelEndpoint string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   serviceName,
		Short: "Invoke calculator methods through a configured interception chain",
		Long: `interim runs a calculator method through the interception chain described
by a YAML file and INTERIM_* environment variables, then prints the result.`,
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildTime),
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Chain configuration file (YAML)")
	rootCmd.PersistentFlags().StringVar(&flags.amqpURL, "amqp-url", "", "Publish audit records to this RabbitMQ URL")
	rootCmd.PersistentFlags().StringVarP(&flags.logLevel, "log-level", "l", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&flags.otelEndpoint, "otel-endpoint", "", "OTLP/HTTP endpoint for traces")

	rootCmd.AddCommand(
		newCalcCmd(flags, "add", "Add", "Add two integers"),
		newCalcCmd(flags, "sub", "Subtract", "Subtract the second integer from the first"),
		newCalcCmd(flags, "mul", "Multiply", "Multiply two integers"),
		newCalcCmd(flags, "div", "Divide", "Divide the first integer by the second"),
	)

	return rootCmd
}

func newCalcCmd(flags *globalFlags, use, methodName, short string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <a> <b>",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid first operand: %w", err)
			}
			b, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid second operand: %w", err)
			}

			result, err := run(cmd.Context(), flags, cmd.ErrOrStderr(), methodName, a, b)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), result)
			return nil
		},
	}
}

func loadConfig(flags *globalFlags) (*config.Config, error) {
	cfg := config.Default()
	if flags.configPath != "" {
		loaded, err := config.Load(flags.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if err := config.ApplyEnv(cfg); err != nil {
		return nil, err
	}

	if flags.logLevel != "" {
		cfg.Logging.Level = flags.logLevel
	}
	if flags.amqpURL != "" {
		cfg.Audit.Enabled = true
		cfg.Audit.URL = flags.amqpURL
	}
	if flags.otelEndpoint != "" {
		cfg.Tracing.Enabled = true
		cfg.Tracing.Endpoint = flags.otelEndpoint
	}

	return cfg, cfg.Validate()
}

func run(ctx context.Context, flags *globalFlags, logOut io.Writer, methodName string, args ...any) (any, error) {
	cfg, err := loadConfig(flags)
	if err != nil {
		return nil, err
	}

	level, err := config.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	logger := slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{Level: level}))

	// One invocation per process: breaker transitions are logged before exit.
	deps := config.Deps{Logger: logger, SyncListeners: true}

	if cfg.Tracing.Enabled {
		shutdown, err := telemetry.Setup(ctx, serviceName, cfg.Tracing.Endpoint)
		if err != nil {
			return nil, fmt.Errorf("failed to set up tracing: %w", err)
		}
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				logger.Warn("failed to flush traces", "error", err)
			}
		}()
		deps.Tracer = otel.Tracer(serviceName)
	}

	if cfg.Audit.Enabled {
		conn, err := amqp.Dial(cfg.Audit.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
		}
		defer conn.Close()

		ch, err := conn.Channel()
		if err != nil {
			return nil, fmt.Errorf("failed to open channel: %w", err)
		}
		defer ch.Close()

		deps.Publisher = ch
	}

	if cfg.CircuitBreaker.Enabled {
		deps.Listeners = append(deps.Listeners, reliability.StateChangeFunc(
			func(name string, from, to reliability.State, reason string) {
				logger.Warn("circuit breaker state changed",
					"name", name,
					"from", from.String(),
					"to", to.String(),
					"reason", reason,
				)
			}))
	}

	chain, err := config.Build(cfg, deps)
	if err != nil {
		return nil, err
	}

	calc := Calculator{}
	method, err := invocation.MethodByName(calc, methodName)
	if err != nil {
		return nil, err
	}

	stack := invocation.NewInterceptorStack(calc, method, chain, invocation.WithLogger(logger))
	return stack.Invoke(ctx, args...)
}
