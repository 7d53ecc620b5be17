package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/aeobrien/colloquy"
	"github.com/aeobrien/colloquy/assembly"
	"github.com/aeobrien/colloquy/maintenance"
	"github.com/aeobrien/colloquy/model"
	"github.com/aeobrien/colloquy/render"
	"github.com/aeobrien/colloquy/sessionstate"
	"github.com/aeobrien/colloquy/storage"
	"github.com/aeobrien/colloquy/summary"
)

var rootCmd = &cobra.Command{
	Use:   "colloquy",
	Short: "Colloquy session tool",
	Long: `Colloquy runs project-scoped AI conversation sessions.

Sessions belong to a project and run in one of four modes (exploration,
definition, planning, execution_support). This tool manages session
lifecycle, runs interactive chat turns, shows summaries, and sweeps
abandoned sessions into auto-generated summaries.

Storage is SQLite under the workspace by default; set COLLOQUY_DATABASE_URL
(or --database-url) to use Postgres instead. Chat and sweep need
COLLOQUY_API_KEY (or ANTHROPIC_API_KEY) for the model.`,
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("COLLOQUY")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory for the SQLite database")
	rootCmd.PersistentFlags().String("database-url", "", "Postgres connection string (overrides SQLite)")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("database-url", rootCmd.PersistentFlags().Lookup("database-url"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func registerCommands() {
	rootCmd.AddCommand(sessionCmd())
	rootCmd.AddCommand(chatCmd())
	rootCmd.AddCommand(summaryCmd())
	rootCmd.AddCommand(sweepCmd())
}

// withStore opens the configured storage backend, runs fn, and closes it.
func withStore(ctx context.Context, fn func(ctx context.Context, store storage.Store) error) error {
	if url := viper.GetString("database-url"); url != "" {
		pool, err := pgxpool.New(ctx, url)
		if err != nil {
			return fmt.Errorf("connecting to postgres: %w", err)
		}
		defer pool.Close()
		store := storage.NewPostgresStore(pool)
		if err := store.EnsureSchema(ctx); err != nil {
			return err
		}
		return fn(ctx, store)
	}

	store, err := storage.OpenSQLite(ctx, viper.GetString("workspace"))
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(ctx, store)
}

// withEngine is withStore plus a model client and an engine around both.
func withEngine(ctx context.Context, fn func(ctx context.Context, engine *colloquy.Engine) error) error {
	return withStore(ctx, func(ctx context.Context, store storage.Store) error {
		apiKey := viper.GetString("api-key")
		if apiKey == "" {
			apiKey = os.Getenv("ANTHROPIC_API_KEY")
		}
		client, err := model.NewAnthropicClient(model.AnthropicConfig{APIKey: apiKey})
		if err != nil {
			return err
		}
		engine, err := colloquy.New(colloquy.Config{Store: store, Client: client})
		if err != nil {
			return err
		}
		return fn(ctx, engine)
	})
}

func sessionCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "session", Short: "Manage sessions"}
	cmd.AddCommand(sessionListCmd())
	cmd.AddCommand(sessionStartCmd())
	cmd.AddCommand(sessionShowCmd())
	cmd.AddCommand(sessionPauseCmd())
	cmd.AddCommand(sessionResumeCmd())
	cmd.AddCommand(sessionCompleteCmd())
	cmd.AddCommand(sessionEndCmd())
	return cmd
}

func sessionListCmd() *cobra.Command {
	var project string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a project's sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), func(ctx context.Context, store storage.Store) error {
				sessions, err := store.SessionsByProject(ctx, project)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(sessions)
				}
				for _, s := range sessions {
					mode := string(s.Mode)
					if s.SubMode != sessionstate.SubModeNone {
						mode += "/" + string(s.SubMode)
					}
					fmt.Printf("%s  %-24s %-11s last active %s\n",
						s.ID, mode, s.Status, s.LastActiveAt.Format(time.RFC3339))
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&project, "project", "", "project id")
	_ = cmd.MarkFlagRequired("project")
	return cmd
}

func sessionStartCmd() *cobra.Command {
	var project, mode, subMode string
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start a new session (pausing any active one)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, engine *colloquy.Engine) error {
				session, err := engine.StartSession(ctx, project,
					sessionstate.Mode(mode), sessionstate.SubMode(subMode))
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(session)
				}
				fmt.Println(session.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&project, "project", "", "project id")
	cmd.Flags().StringVar(&mode, "mode", string(sessionstate.ModeExploration), "session mode")
	cmd.Flags().StringVar(&subMode, "sub-mode", "", "execution_support sub-mode")
	_ = cmd.MarkFlagRequired("project")
	return cmd
}

func sessionShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <session-id>",
		Short: "Show a session and its transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), func(ctx context.Context, store storage.Store) error {
				session, err := store.GetSession(ctx, args[0])
				if err != nil {
					return err
				}
				msgs, err := store.GetMessages(ctx, args[0])
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]any{"session": session, "messages": msgs})
				}
				fmt.Printf("session %s  project %s  %s  status %s\n\n",
					session.ID, session.ProjectID, session.Mode, session.Status)
				for _, m := range msgs {
					fmt.Printf("[%s] %s\n%s\n\n", m.CreatedAt.Format("15:04"), m.Role, m.Content)
				}
				return nil
			})
		},
	}
	return cmd
}

func sessionPauseCmd() *cobra.Command {
	return transitionCmd("pause", "Pause an active session",
		func(ctx context.Context, engine *colloquy.Engine, id string) error {
			_, err := engine.PauseSession(ctx, id)
			return err
		})
}

func sessionResumeCmd() *cobra.Command {
	return transitionCmd("resume", "Resume a paused session",
		func(ctx context.Context, engine *colloquy.Engine, id string) error {
			_, err := engine.ResumeSession(ctx, id)
			return err
		})
}

func sessionCompleteCmd() *cobra.Command {
	return transitionCmd("complete", "Complete a session and generate its summary",
		func(ctx context.Context, engine *colloquy.Engine, id string) error {
			record, err := engine.CompleteSession(ctx, id)
			if err != nil {
				return err
			}
			fmt.Print(render.SummaryMarkdown(record))
			return nil
		})
}

func sessionEndCmd() *cobra.Command {
	return transitionCmd("end", "End a session early; the summary records it as incomplete",
		func(ctx context.Context, engine *colloquy.Engine, id string) error {
			record, err := engine.EndSession(ctx, id)
			if err != nil {
				return err
			}
			fmt.Print(render.SummaryMarkdown(record))
			return nil
		})
}

func transitionCmd(use, short string, fn func(ctx context.Context, engine *colloquy.Engine, id string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <session-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, engine *colloquy.Engine) error {
				return fn(ctx, engine, args[0])
			})
		},
	}
}

func chatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat <session-id>",
		Short: "Run interactive turns against a session",
		Long: `Reads lines from stdin, sends each as one conversational turn, and
prints the assistant's reply. Signals the model emits (mode completion,
document drafts, session end) are listed after the prose. EOF ends the
loop without closing the session.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, engine *colloquy.Engine) error {
				scanner := bufio.NewScanner(os.Stdin)
				scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
				fmt.Print("> ")
				for scanner.Scan() {
					text := strings.TrimSpace(scanner.Text())
					if text == "" {
						fmt.Print("> ")
						continue
					}
					result, err := engine.SendMessage(ctx, args[0], text, assembly.ProjectData{}, "")
					if err != nil {
						return err
					}
					fmt.Println(result.NaturalLanguage)
					for _, sig := range result.Signals {
						fmt.Printf("  [signal %s] %s\n", sig.Kind, sig.Value)
					}
					for _, action := range result.Actions {
						fmt.Printf("  [action %s] %v\n", action.Type, action.Params)
					}
					fmt.Print("> ")
				}
				return scanner.Err()
			})
		},
	}
	return cmd
}

func summaryCmd() *cobra.Command {
	var asHTML bool
	cmd := &cobra.Command{
		Use:   "summary <session-id>",
		Short: "Show a session's summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), func(ctx context.Context, store storage.Store) error {
				record, err := store.GetSummary(ctx, args[0])
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(record)
				}
				if asHTML {
					html, err := render.New().SummaryHTML(record)
					if err != nil {
						return err
					}
					fmt.Println(html)
					return nil
				}
				fmt.Print(render.SummaryMarkdown(record))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asHTML, "html", false, "render the digest as HTML")
	return cmd
}

func sweepCmd() *cobra.Command {
	var pauseTimeout time.Duration
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Summarise sessions paused longer than the timeout",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), func(ctx context.Context, store storage.Store) error {
				apiKey := viper.GetString("api-key")
				if apiKey == "" {
					apiKey = os.Getenv("ANTHROPIC_API_KEY")
				}
				client, err := model.NewAnthropicClient(model.AnthropicConfig{APIKey: apiKey})
				if err != nil {
					return err
				}
				generator := summary.NewGenerator(store, client, nil, summary.DefaultGeneratorConfig())
				sweeper := maintenance.NewSweeper(store, generator, &maintenance.SweeperConfig{
					PauseTimeout: pauseTimeout,
				})
				result := sweeper.Sweep(ctx)
				if viper.GetBool("json") {
					return printJSON(result)
				}
				fmt.Printf("eligible %d, summarised %d, parked %d\n",
					result.Eligible, result.Summarised, result.Parked)
				for _, err := range result.Errors {
					fmt.Fprintln(os.Stderr, "sweep:", err)
				}
				return nil
			})
		},
	}
	cmd.Flags().DurationVar(&pauseTimeout, "pause-timeout", maintenance.DefaultPauseTimeout,
		"how long a paused session may idle before being swept")
	return cmd
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
