// Package main is the entry point for pneo, a terminal browser for INSPIRE
// search results and their arXiv preprints.
package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/csheth/pneo/internal/arxiv"
	"github.com/csheth/pneo/internal/config"
	"github.com/csheth/pneo/internal/debuglog"
	"github.com/csheth/pneo/internal/inspire"
	"github.com/csheth/pneo/internal/library"
	"github.com/csheth/pneo/internal/pipeline"
	"github.com/csheth/pneo/internal/records"
	"github.com/csheth/pneo/internal/session"
)

// version is set at build time via ldflags.
var version = "dev"

type options struct {
	configPath     string
	generateConfig bool
	noAltScreen    bool
	logLevel       string
}

func newRootCmd() *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:   "pneo [query]",
		Short: "Search INSPIRE and open arXiv preprints from the terminal",
		Long: `pneo searches the INSPIRE-HEP literature database as you type. Select a
result and press Enter to download its arXiv preprint into the local library
and open it; already downloaded preprints open straight away.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.generateConfig {
				return generateConfig(cmd, opts.configPath)
			}
			return run(opts, strings.Join(args, " "))
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.configPath, "config", "", "config file (default: "+config.DefaultPath()+")")
	flags.BoolVar(&opts.generateConfig, "generate-config", false, "write the default configuration to the config path and exit")
	flags.BoolVar(&opts.noAltScreen, "no-alt-screen", false, "draw in the main screen buffer instead of the alternate screen")
	flags.StringVar(&opts.logLevel, "log-level", "", "log verbosity: debug, info, warn, error or off")
	cmd.SetVersionTemplate("pneo {{.Version}}\n")
	return cmd
}

func generateConfig(cmd *cobra.Command, path string) error {
	if path == "" {
		path = config.DefaultPath()
	}
	if err := config.WriteDefault(path); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "wrote", path)
	return nil
}

func run(opts options, query string) (err error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}

	logPath := cfg.Log.File
	if logPath == "" {
		logPath = debuglog.DefaultPath()
	}
	if err := debuglog.Setup(debuglog.ParseLevel(cfg.Log.Level), logPath); err != nil {
		return fmt.Errorf("setting up log: %w", err)
	}
	defer debuglog.Close()
	debuglog.Infof("pneo %s starting, data dir %s", version, cfg.Storage.DataDir)

	if err := os.MkdirAll(cfg.Storage.DataDir, 0o755); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}

	lib, err := library.Open(cfg.Storage.DatabasePath(), cfg.Storage.PreprintDir(),
		library.WithOpener(library.CommandOpener{Command: cfg.Opener}))
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, lib.Close()) }()

	archive, err := records.Open(cfg.Storage.RecordsPath())
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, archive.Close()) }()

	searcher := inspire.NewClient(inspire.Options{
		Endpoint:          cfg.Search.Endpoint,
		PageSize:          cfg.Search.PageSize,
		Sort:              cfg.Search.Sort,
		RequestsPerSecond: cfg.Search.RequestsPerSecond,
		UserAgent:         cfg.HTTP.UserAgent,
		HTTPClient:        &http.Client{Timeout: cfg.HTTP.Timeout},
	})
	fetcher, err := arxiv.NewClient(arxiv.Options{
		Endpoint:    cfg.Arxiv.Endpoint,
		UserAgent:   cfg.HTTP.UserAgent,
		StagingDir:  cfg.Storage.StagingDir(),
		APIInterval: cfg.Arxiv.APIInterval,
	})
	if err != nil {
		return err
	}

	model := session.New(session.Config{
		Searcher: searcher,
		Fetcher:  fetcher,
		Library:  lib,
		Records:  archive,
		Pipeline: pipeline.Config{
			Debounce:       cfg.Search.Debounce,
			MinQueryLength: cfg.Search.MinQueryLength,
		},
		InitialQuery: query,
	})

	programOpts := []tea.ProgramOption{tea.WithMouseCellMotion()}
	if !opts.noAltScreen {
		programOpts = append(programOpts, tea.WithAltScreen())
	}
	if _, err := tea.NewProgram(model, programOpts...).Run(); err != nil {
		return fmt.Errorf("terminal: %w", err)
	}
	debuglog.Infof("pneo exiting")
	return nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "pneo:", err)
		os.Exit(1)
	}
}
