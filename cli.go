package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"lab_notebook_writer/config"
	"lab_notebook_writer/experiment"
	"lab_notebook_writer/generator"
	"lab_notebook_writer/logging"
	"lab_notebook_writer/notebook"
	"lab_notebook_writer/server"
	"lab_notebook_writer/vision"
)

var errNotCompleted = errors.New("writeup process did not complete successfully")

type options struct {
	configPath  string
	folder      string
	model       string
	visionModel string
	reflections int
	logLevel    string
	pretty      bool
	noHTML      bool
	addr        string
	root        string
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "labnotebook",
		Short: "Create a lab notebook summarizing automated experiment runs",
		Long: `labnotebook reads an experiment run folder (idea, stage summaries, figures,
plot aggregator script), asks a language model to write a lab notebook and then
lets it revise the notebook over a number of reflection passes.

The result is written to <folder>/notebook/lab_notebook.md.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCreate(cmd, opts)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "path to config.json (optional)")
	pf.StringVar(&opts.model, "model", "", "model used to write the notebook (default "+config.DefaultModel+")")
	pf.StringVar(&opts.visionModel, "vision-model", "", "model used to describe figures (default "+config.DefaultVisionModel+")")
	pf.IntVar(&opts.reflections, "notebook-reflections", notebook.DefaultReflections, "number of reflection steps for the final notebook writeup")
	pf.StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	pf.BoolVar(&opts.pretty, "pretty", false, "human readable log output")
	pf.BoolVar(&opts.noHTML, "no-html", false, "skip rendering lab_notebook.html")

	cmd.Flags().StringVar(&opts.folder, "folder", "", "project folder of the experiment run")
	_ = cmd.MarkFlagRequired("folder")

	cmd.AddCommand(newServeCmd(opts))
	return cmd
}

func newServeCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve notebook builds over HTTP for run folders under --root",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.addr, "addr", "", "http listen address (overrides config server_addr)")
	cmd.Flags().StringVar(&opts.root, "root", ".", "directory containing run folders")
	return cmd
}

// setup loads config, applies flag overrides and builds the logger and notebook builder.
func setup(opts *options) (*logging.Logger, *notebook.Builder, config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, nil, cfg, err
	}
	if opts.model != "" {
		cfg.LLM.Model = opts.model
		cfg.LLM.Provider = ""
	}
	if opts.visionModel != "" {
		cfg.VLM.Model = opts.visionModel
		cfg.VLM.Provider = ""
	}
	if opts.logLevel != "" {
		cfg.Logging.Level = opts.logLevel
	}
	if opts.pretty {
		cfg.Logging.Pretty = true
	}
	if opts.reflections < 0 {
		return nil, nil, cfg, fmt.Errorf("--notebook-reflections must not be negative")
	}

	logger, err := logging.New(logging.Config{
		Level:  cfg.Logging.Level,
		Pretty: cfg.Logging.Pretty,
		File:   cfg.Logging.File,
	})
	if err != nil {
		return nil, nil, cfg, err
	}

	llm, err := buildLLM(cfg.LLM)
	if err != nil {
		logger.Close()
		return nil, nil, cfg, err
	}

	// A missing vision model only costs the figure descriptions.
	describer, err := buildDescriber(cfg.VLM)
	if err != nil {
		logger.Warn().Err(err).Str("model", cfg.VLM.Model).Msg("vision model unavailable, figures will not be described")
	}

	b := &notebook.Builder{
		LLM:         llm,
		Vision:      describer,
		Reflections: opts.reflections,
		RenderHTML:  !opts.noHTML,
		Log:         logger.Logger,
	}
	return logger, b, cfg, nil
}

func runCreate(cmd *cobra.Command, opts *options) error {
	logger, b, cfg, err := setup(opts)
	if err != nil {
		return err
	}
	defer logger.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info().
		Str("folder", opts.folder).
		Str("model", cfg.LLM.Model).
		Int("reflections", opts.reflections).
		Msg("creating lab notebook")
	if !b.Run(ctx, opts.folder) {
		fmt.Fprintln(cmd.ErrOrStderr(), "Writeup process did not complete successfully.")
		return errNotCompleted
	}
	fmt.Fprintln(cmd.OutOrStdout(), experiment.NewLayout(opts.folder).NotebookFile())
	return nil
}

func runServe(cmd *cobra.Command, opts *options) error {
	logger, b, cfg, err := setup(opts)
	if err != nil {
		return err
	}
	defer logger.Close()

	srv, err := server.New(b, opts.root, logger.Logger)
	if err != nil {
		return err
	}
	listen := cfg.ServerAddr
	if opts.addr != "" {
		listen = opts.addr
	}

	httpSrv := &http.Server{Addr: listen, Handler: srv.Routes()}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		_ = httpSrv.Shutdown(context.Background())
	}()

	logger.Info().Str("addr", listen).Str("root", opts.root).Msg("starting web server")
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func buildLLM(c config.LLMConfig) (generator.LLMClient, error) {
	s, err := settingsFor(c)
	if err != nil {
		return nil, err
	}
	return generator.NewLLM(s)
}

func buildDescriber(c config.LLMConfig) (vision.Describer, error) {
	s, err := settingsFor(c)
	if err != nil {
		return nil, err
	}
	return vision.New(s)
}

func settingsFor(c config.LLMConfig) (generator.LLMSettings, error) {
	provider := c.Provider
	if provider == "" {
		p, err := generator.ProviderForModel(c.Model)
		if err != nil {
			return generator.LLMSettings{}, err
		}
		provider = p
	}
	return generator.LLMSettings{
		Provider:    provider,
		Model:       c.Model,
		APIKey:      c.ResolveAPIKey(provider),
		BaseURL:     c.BaseURL,
		MaxTokens:   c.MaxTokens,
		Temperature: c.Temperature,
	}, nil
}
