package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"story_studio/config"
	"story_studio/generator"
	"story_studio/logging"
	"story_studio/outline"
	"story_studio/publisher"
	"story_studio/server"
	"story_studio/tui"
)

type app struct {
	configPath string
	verbose    bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "storystudio",
		Short:         "Draft and revise six beat short-story outlines with a hosted model",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "config/config.json", "path to config file (.json, .yaml)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logs")

	root.AddCommand(
		newServeCmd(a),
		newTUICmd(a),
		newOutlineCmd(a),
		newReviseCmd(a),
		newInitConfigCmd(a),
	)
	return root
}

func (a *app) load(console bool) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return nil, nil, err
	}
	if a.verbose {
		cfg.Logging.Level = "debug"
	}
	logger, err := logging.New(cfg.Logging, console)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func buildAgent(cfg *config.Config, logger *zap.Logger) (*generator.Agent, error) {
	outlineLLM, err := generator.NewLLM(cfg.Settings(config.EndpointOutline))
	if err != nil {
		return nil, err
	}
	reviseLLM, err := generator.NewLLM(cfg.Settings(config.EndpointRevise))
	if err != nil {
		return nil, err
	}
	return generator.NewAgent(outlineLLM, reviseLLM, logger.Named("agent"))
}

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the studio web server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := a.load(true)
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			agent, err := buildAgent(cfg, logger)
			if err != nil {
				return err
			}
			srv, err := server.New(agent, server.Options{
				Timeout: cfg.GetRequestTimeout(),
				Logger:  logger.Named("http"),
			})
			if err != nil {
				return err
			}

			listen := cfg.Server.Addr
			if addr != "" {
				listen = addr
			}
			httpSrv := &http.Server{
				Addr:              listen,
				Handler:           srv.Routes(),
				ReadHeaderTimeout: 10 * time.Second,
			}
			return serve(cmd.Context(), httpSrv, logger)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "http listen address (overrides server.addr)")
	return cmd
}

// serve runs httpSrv until ctx is cancelled, then drains in-flight requests.
func serve(ctx context.Context, httpSrv *http.Server, logger *zap.Logger) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting web server", zap.String("addr", httpSrv.Addr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down web server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func newTUICmd(a *app) *cobra.Command {
	var serverURL, style string
	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Open the terminal studio",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := a.load(false)
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			var gen outline.Generator
			if serverURL != "" {
				gen = outline.NewClient(serverURL, nil)
			} else {
				agent, err := buildAgent(cfg, logger)
				if err != nil {
					return err
				}
				gen = agent
			}
			studio := outline.NewStudio(gen, logger.Named("studio"))
			return tui.Run(cmd.Context(), studio, tui.Options{Logger: logger, GlamourStyle: style})
		},
	}
	cmd.Flags().StringVar(&serverURL, "server", "", "use a running studio server (e.g. http://localhost:8080) instead of calling the model directly")
	cmd.Flags().StringVar(&style, "style", "dark", "preview style: dark, light or notty")
	return cmd
}

type oneShotFlags struct {
	mode   string
	voice  string
	format string
	out    string
}

func (f *oneShotFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.mode, "mode", string(generator.ModeMemoryLane), "Memory Lane, Dreamscape or Biography")
	cmd.Flags().StringVar(&f.voice, "voice", "", "1-2 line summary of your voice")
	cmd.Flags().StringVar(&f.format, "format", "", "export format: text, markdown, html or paste (default: raw model text)")
	cmd.Flags().StringVar(&f.out, "out", "", "write the export to this directory instead of stdout")
}

// emit prints the model text, or renders it through the publisher when a
// format or output directory was requested.
func (f *oneShotFlags) emit(cmd *cobra.Command, logger *zap.Logger, theme, text string) error {
	if f.format == "" && f.out == "" {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), text)
		return err
	}
	format, err := publisher.ParseFormat(f.format)
	if err != nil {
		return err
	}
	pub := publisher.New(logger)
	doc := publisher.FromHTML("", theme, generator.Mode(f.mode), outline.ToHTML(text))
	if f.out != "" {
		path, err := pub.WriteFile(doc, format, f.out)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), path)
		return err
	}
	data, err := pub.Render(doc, format)
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}

func newOutlineCmd(a *app) *cobra.Command {
	var f oneShotFlags
	cmd := &cobra.Command{
		Use:   "outline <theme>",
		Short: "Create an outline for a theme and print it",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := a.load(a.verbose)
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			agent, err := buildAgent(cfg, logger)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.GetRequestTimeout())
			defer cancel()

			theme := strings.Join(args, " ")
			text, err := agent.CreateOutline(ctx, generator.CreateRequest{
				Theme: theme,
				Mode:  generator.Mode(f.mode),
				Voice: generator.Voice{Summary: f.voice},
			})
			if err != nil {
				return err
			}
			return f.emit(cmd, logger, theme, text)
		},
	}
	f.register(cmd)
	return cmd
}

func newReviseCmd(a *app) *cobra.Command {
	var (
		f            oneShotFlags
		outlinePath  string
		instructions string
	)
	cmd := &cobra.Command{
		Use:   "revise",
		Short: "Revise an outline file with instructions and print the result",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := a.load(a.verbose)
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			current, err := readOutline(cmd.InOrStdin(), outlinePath)
			if err != nil {
				return err
			}
			agent, err := buildAgent(cfg, logger)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.GetRequestTimeout())
			defer cancel()

			text, err := agent.ReviseOutline(ctx, generator.ReviseRequest{
				Outline:      current,
				Instructions: instructions,
				Mode:         generator.Mode(f.mode),
				Voice:        generator.Voice{Summary: f.voice},
			})
			if err != nil {
				return err
			}
			return f.emit(cmd, logger, "", text)
		},
	}
	f.register(cmd)
	cmd.Flags().StringVar(&outlinePath, "outline", "-", "outline file to revise, - for stdin")
	cmd.Flags().StringVarP(&instructions, "instructions", "i", "", "what to change")
	return cmd
}

// readOutline reads plain text, or converts HTML saved from the studio.
func readOutline(stdin io.Reader, path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("read outline: %w", err)
	}
	text := string(data)
	if strings.HasPrefix(strings.TrimSpace(text), "<") {
		text = outline.ToPlainText(text)
	}
	return text, nil
}

func newInitConfigCmd(a *app) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init-config",
		Short: "Write a default config file to --config",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(a.configPath); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", a.configPath)
			}
			if err := config.DefaultConfig().Save(a.configPath); err != nil {
				return err
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), a.configPath)
			return err
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}
