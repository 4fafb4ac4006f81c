package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/comigor/wrestlingai/internal/aiclient"
	"github.com/comigor/wrestlingai/internal/config"
	"github.com/comigor/wrestlingai/internal/history"
	"github.com/comigor/wrestlingai/internal/logger"
	"github.com/comigor/wrestlingai/internal/mcpserver"
	"github.com/comigor/wrestlingai/internal/server"
)

const (
	version       = "0.1.0"
	examplePrompt = "What are the key elements of professional wrestling?"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:                   "wrestlingai [PROMPT...]",
		Short:                 "Send a prompt to OpenRouter and print the reply",
		DisableFlagsInUseLine: true,
		DisableSuggestions:    true,
		SilenceUsage:          true,
		Args:                  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt := examplePrompt
			if len(args) > 0 {
				prompt = strings.Join(args, " ")
			}
			return runPrompt(cmd.Context(), cmd.OutOrStdout(), prompt)
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true

	root.AddCommand(newServeCmd(), newMCPCmd(), newHistoryCmd())
	return root
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the adapter over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, client, err := setup()
			if err != nil {
				return err
			}

			var rec server.Recorder
			if cfg.History.Path != "" {
				store, err := history.Open(cfg.History.Path)
				if err != nil {
					return err
				}
				defer store.Close()
				rec = store
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
			return server.Run(ctx, addr, server.NewHandler(client, rec))
		},
	}
}

func newMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the generate_response tool over MCP stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// stdout carries the protocol
			logger.L = logger.New(os.Stderr)

			_, client, err := setup()
			if err != nil {
				return err
			}
			return mcpserver.Serve(mcpserver.New(client, version))
		},
	}
}

func newHistoryCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded exchanges, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.History.Path == "" {
				return fmt.Errorf("history is disabled: set history.path or WRESTLINGAI_HISTORY_PATH")
			}
			store, err := history.Open(cfg.History.Path)
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			printHistory(cmd.OutOrStdout(), entries)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of exchanges to show (0 for all)")
	return cmd
}

// setup loads the configuration and builds the adapter.
func setup() (*config.Config, *aiclient.Client, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	logger.SetLevel(cfg.Log.Level)

	client, err := aiclient.New(cfg.LLM)
	if err != nil {
		return nil, nil, err
	}
	return cfg, client, nil
}

func runPrompt(ctx context.Context, w io.Writer, prompt string) error {
	cfg, client, err := setup()
	if err != nil {
		return err
	}

	resp, err := client.GenerateResponse(ctx, prompt, aiclient.Options{})
	if err != nil {
		return err
	}
	printResponse(w, resp)

	if cfg.History.Path != "" {
		store, err := history.Open(cfg.History.Path)
		if err != nil {
			logger.L.Warn("history unavailable", "error", err)
			return nil
		}
		defer store.Close()
		if _, err := store.Save(ctx, history.FromResponse(prompt, resp)); err != nil {
			logger.L.Warn("failed to record exchange", "error", err)
		}
	}
	return nil
}

func printResponse(w io.Writer, resp *aiclient.Response) {
	fmt.Fprintln(w, "Model Response:")
	fmt.Fprintln(w, resp.Content)
	fmt.Fprintln(w, "\nModel Used:", resp.Model)
	fmt.Fprintf(w, "Token Usage: prompt=%d completion=%d total=%d\n",
		resp.Usage.PromptTokens, resp.Usage.CompletionTokens, resp.Usage.TotalTokens)
}

func printHistory(w io.Writer, entries []history.Exchange) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No exchanges recorded.")
		return
	}
	for _, e := range entries {
		fmt.Fprintf(w, "%s  %s  (%d tokens)\n", e.CreatedAt.Format("2006-01-02 15:04:05"), e.Model, e.TotalTokens)
		fmt.Fprintf(w, "  > %s\n", e.Prompt)
		fmt.Fprintf(w, "  %s\n\n", e.Content)
	}
}
