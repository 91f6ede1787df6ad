package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"ai-travel-planner/internal/app"
	"ai-travel-planner/internal/auth"
	"ai-travel-planner/internal/config"
	"ai-travel-planner/internal/planner"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "travel-planner",
		Short:         "Turn travel notes into day-by-day itineraries",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(generateCmd(), importCmd(), usageCmd(), metricsCleanupCmd(), tokenCmd())
	return cmd
}

// withRuntime loads configuration, wires the app and runs f.
func withRuntime(f func(ctx context.Context, rt *app.Runtime) error) error {
	cfg, err := config.NewFromEnv()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	ctx := context.Background()
	rt, err := app.NewRuntime(ctx, cfg)
	if err != nil {
		return err
	}
	defer rt.Close()
	return f(ctx, rt)
}

func generateCmd() *cobra.Command {
	var (
		userID, noteID, file, title string
		style, transport, budget    string
		replace                     bool
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a travel plan for a stored note or a text file",
		Example: `  travel-planner generate --user u1 --note 6f1c9b52-... --style adventure
  travel-planner generate --user u1 --file rzym.txt`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if (noteID == "") == (file == "") {
				return fmt.Errorf("exactly one of --note and --file is required")
			}

			var opts *planner.Options
			if style != "" || transport != "" || budget != "" {
				opts = &planner.Options{Style: planner.Style(style), Transport: planner.Transport(transport), Budget: planner.Budget(budget)}
				if err := opts.Validate(); err != nil {
					return err
				}
			}
			mode := app.ModeCreate
			if replace {
				mode = app.ModeReplace
			}

			return withRuntime(func(ctx context.Context, rt *app.Runtime) error {
				id := noteID
				if file != "" {
					data, err := os.ReadFile(file)
					if err != nil {
						return fmt.Errorf("failed to read %s: %w", file, err)
					}
					text := string(data)
					if title == "" {
						title = firstLine(text)
					}
					note, err := rt.App.CreateNote(ctx, userID, title, &text)
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.ErrOrStderr(), "Created note %s\n", note.ID)
					id = note.ID
				}

				out, err := rt.App.GeneratePlanForNote(ctx, userID, id, opts, mode)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Plan %s (created: %t, %d prompt + %d completion tokens in %v)\n",
					out.Plan.ID, out.Created, out.Meta.Usage.PromptTokens, out.Meta.Usage.CompletionTokens, out.Meta.Latency.Round(time.Millisecond))
				return printJSON(cmd, out.Plan)
			})
		},
	}

	cmd.Flags().StringVar(&userID, "user", "cli", "Owner of the note")
	cmd.Flags().StringVar(&noteID, "note", "", "ID of a stored note")
	cmd.Flags().StringVar(&file, "file", "", "Text file to store as a new note")
	cmd.Flags().StringVar(&title, "title", "", "Title of the new note (defaults to the file's first line)")
	cmd.Flags().StringVar(&style, "style", "", "adventure or leisure")
	cmd.Flags().StringVar(&transport, "transport", "", "car, public or walking")
	cmd.Flags().StringVar(&budget, "budget", "", "economy, standard or luxury")
	cmd.Flags().BoolVar(&replace, "replace", false, "Fail unless the note already has a plan")
	return cmd
}

func importCmd() *cobra.Command {
	var userID string
	cmd := &cobra.Command{
		Use:   "import <url>",
		Short: "Import a travel article as a note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(func(ctx context.Context, rt *app.Runtime) error {
				note, err := rt.App.ImportNote(ctx, userID, args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd, note)
			})
		},
	}
	cmd.Flags().StringVar(&userID, "user", "cli", "Owner of the note")
	return cmd
}

func usageCmd() *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "usage",
		Short: "Show token usage per day",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(func(_ context.Context, rt *app.Runtime) error {
				usage, err := rt.Metrics.GetDailyUsage(days)
				if err != nil {
					return err
				}
				for _, d := range usage {
					fmt.Fprintf(cmd.OutOrStdout(), "%s  %6d prompt  %6d completion  %3d execs  %3d failed\n",
						d.Date, d.TotalPrompt, d.TotalCompletion, d.TotalExecution, d.Failures)
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&days, "days", 7, "Number of days to report")
	return cmd
}

func metricsCleanupCmd() *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "metrics-cleanup",
		Short: "Remove old metric records",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(func(_ context.Context, rt *app.Runtime) error {
				affected, err := rt.Metrics.Cleanup(days)
				if err != nil {
					return fmt.Errorf("cleanup failed: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Successfully removed %d old metric records.\n", affected)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&days, "days", 30, "Keep records for the last N days")
	return cmd
}

func tokenCmd() *cobra.Command {
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token <user-id>",
		Short: "Issue an API bearer token for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.NewFromEnv()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			if cfg.JWTSecret == "" {
				return fmt.Errorf("JWT_SECRET environment variable not set")
			}
			token, err := auth.NewVerifier(cfg.JWTSecret).IssueToken(args[0], ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime")
	return cmd
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func firstLine(text string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(text), "\n")
	return strings.TrimSpace(line)
}
