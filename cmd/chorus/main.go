package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/bowerhall/chorus/internal/assembler"
	"github.com/bowerhall/chorus/internal/config"
	"github.com/bowerhall/chorus/internal/embedder"
	"github.com/bowerhall/chorus/internal/llm"
	"github.com/bowerhall/chorus/internal/logger"
	"github.com/bowerhall/chorus/internal/persona"
	"github.com/bowerhall/chorus/internal/pipeline"
	"github.com/bowerhall/chorus/pkg/journalmem"
)

func init() {
	godotenv.Load()
}

var rootCmd = &cobra.Command{
	Use:   "chorus",
	Short: "chorus - a multi-persona journaling assistant with layered memory",
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to a persona, single message or REPL",
	RunE:  runChat,
}

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Inspect recent journal entries for a persona",
	RunE:  runJournal,
}

var instructCmd = &cobra.Command{
	Use:   "instruct [text]",
	Short: "Record a standing behavioral instruction",
	Args:  cobra.ExactArgs(1),
	RunE:  runInstruct,
}

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Compute embeddings for journal entries that are missing them",
	RunE:  runBackfill,
}

var forgetCmd = &cobra.Command{
	Use:   "forget [id]",
	Short: "Delete a full turn (its journal entries cascade) or a single journal entry",
	Args:  cobra.ExactArgs(1),
	RunE:  runForget,
}

var (
	personaFlag string
	userFlag    string
	messageFlag string
	scopeFlag   string
	limitFlag   int
	entryFlag   bool
)

func init() {
	chatCmd.Flags().StringVarP(&personaFlag, "persona", "p", "sage", "Persona to address")
	chatCmd.Flags().StringVarP(&userFlag, "user", "u", "", "User ID (empty until auth exists)")
	chatCmd.Flags().StringVarP(&messageFlag, "message", "m", "", "Single message to send")

	journalCmd.Flags().StringVarP(&personaFlag, "persona", "p", "sage", "Persona to inspect")
	journalCmd.Flags().StringVarP(&userFlag, "user", "u", "", "User ID")
	journalCmd.Flags().IntVarP(&limitFlag, "limit", "n", 20, "Entries to show")

	instructCmd.Flags().StringVarP(&scopeFlag, "scope", "s", journalmem.ScopeGlobal, "Instruction scope: global or a persona name")
	instructCmd.Flags().StringVarP(&userFlag, "user", "u", "", "User ID")

	backfillCmd.Flags().IntVarP(&limitFlag, "limit", "n", 50, "Entries to process")

	forgetCmd.Flags().BoolVar(&entryFlag, "entry", false, "Treat the ID as a journal entry instead of a turn")

	rootCmd.AddCommand(chatCmd, journalCmd, instructCmd, backfillCmd, forgetCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

type app struct {
	cfg      *config.Config
	store    *journalmem.Store
	pipeline *pipeline.Pipeline
}

// mustSetup wires the full stack or exits; the run commands have nothing
// useful to do with a half-constructed app.
func mustSetup() *app {
	a, err := setup()
	if err != nil {
		logger.Fatal("startup failed", "error", err)
	}
	return a
}

func setup() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if !llm.IsKnownProvider(cfg.LLM.Provider) {
		return nil, fmt.Errorf("unknown llm provider: %s", cfg.LLM.Provider)
	}
	if !llm.IsKnownProvider(cfg.Distiller.Provider) {
		return nil, fmt.Errorf("unknown distiller provider: %s", cfg.Distiller.Provider)
	}

	store, err := journalmem.Open(cfg.MemoryPath)
	if err != nil {
		return nil, fmt.Errorf("open memory: %w", err)
	}

	emb, err := embedder.New(embedder.Config{
		Provider: cfg.Embedder.Provider,
		BaseURL:  cfg.Embedder.BaseURL,
		Model:    cfg.Embedder.Model,
	})
	if err != nil {
		store.Close()
		return nil, err
	}
	if emb != nil {
		store.SetEmbedder(emb)
		logger.Debug("embedder configured", "provider", cfg.Embedder.Provider)
	}

	model, err := llm.New(llm.Config{
		Provider: cfg.LLM.Provider,
		APIKey:   cfg.LLM.APIKey,
		Model:    cfg.LLM.Model,
		BaseURL:  cfg.LLM.BaseURL,
	})
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("create llm: %w", err)
	}

	distiller, err := llm.New(llm.Config{
		Provider: cfg.Distiller.Provider,
		APIKey:   cfg.Distiller.APIKey,
		Model:    cfg.Distiller.Model,
		BaseURL:  cfg.Distiller.BaseURL,
	})
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("create distiller: %w", err)
	}

	profiles, err := persona.LoadProfiles(filepath.Join(cfg.EssencePath, "personas.yaml"))
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("load personas: %w", err)
	}

	baseSystem := ""
	if data, err := os.ReadFile(filepath.Join(cfg.EssencePath, "SOUL.md")); err == nil {
		baseSystem = string(data)
	}

	p := pipeline.New(pipeline.Config{
		LLM:           model,
		Distiller:     distiller,
		Store:         store,
		Assembler:     assembler.New(store),
		Profiles:      profiles,
		BaseSystem:    baseSystem,
		ContextWindow: config.ContextWindow(cfg.LLM.Model),
	})

	return &app{cfg: cfg, store: store, pipeline: p}, nil
}

func (a *app) close() {
	a.store.Close()
}

func runChat(cmd *cobra.Command, args []string) error {
	a := mustSetup()
	defer a.close()

	pers := persona.Persona(personaFlag)
	if !persona.IsValid(pers) {
		return fmt.Errorf("unknown persona %q, choose one of: %s", personaFlag, personaList())
	}

	ctx := context.Background()

	stream := func(chunk string) error {
		fmt.Print(chunk)
		return nil
	}

	if messageFlag != "" {
		if _, err := a.pipeline.Run(ctx, userFlag, pers, messageFlag, stream); err != nil {
			return err
		}
		fmt.Println()
		return nil
	}

	// nightly embedding sweep while the REPL is up
	tz, err := time.LoadLocation(a.cfg.Timezone)
	if err != nil {
		logger.Warn("invalid timezone, using UTC", "timezone", a.cfg.Timezone, "error", err)
		tz = time.UTC
	}
	c := cron.New(cron.WithLocation(tz))
	c.AddFunc("0 3 * * *", func() {
		done, err := a.store.BackfillEmbeddings(context.Background(), 50)
		if err != nil {
			logger.Error("embedding backfill failed", "error", err)
		} else if done > 0 {
			logger.Info("embedding backfill completed", "entries", done)
		}
	})
	c.Start()
	defer c.Stop()

	fmt.Printf("chorus (talking to %s; '@name message' to switch, 'exit' to quit)\n", pers)
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Printf("\n[%s] > ", pers)
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			break
		}

		if target, rest, ok := parseAddress(input); ok {
			if !persona.IsValid(target) {
				fmt.Fprintf(os.Stderr, "unknown persona %q, choose one of: %s\n", target, personaList())
				continue
			}
			pers = target
			if rest == "" {
				continue
			}
			input = rest
		}

		if _, err := a.pipeline.Run(ctx, userFlag, pers, input, stream); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}
		fmt.Println()
	}
	return nil
}

// parseAddress recognizes "@persona rest of message" lines.
func parseAddress(input string) (persona.Persona, string, bool) {
	if !strings.HasPrefix(input, "@") {
		return "", "", false
	}
	name, rest, _ := strings.Cut(input[1:], " ")
	return persona.Persona(strings.ToLower(name)), strings.TrimSpace(rest), true
}

func personaList() string {
	names := make([]string, len(persona.All))
	for i, p := range persona.All {
		names[i] = string(p)
	}
	return strings.Join(names, ", ")
}

func runJournal(cmd *cobra.Command, args []string) error {
	a := mustSetup()
	defer a.close()

	ctx := context.Background()

	entries, err := a.store.RecentEntries(ctx, userFlag, personaFlag, limitFlag)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Printf("no journal entries for %s\n", personaFlag)
		return nil
	}

	for _, e := range entries {
		marker := " "
		if e.Starred {
			marker = "*"
		}
		fmt.Printf("%s [%s] s%-2d %s\n", marker, e.CreatedAt.Format("2006-01-02"), e.Salience, e.DecisionArc)
	}
	return nil
}

func runInstruct(cmd *cobra.Command, args []string) error {
	a := mustSetup()
	defer a.close()

	scope := strings.ToLower(scopeFlag)
	if scope != journalmem.ScopeGlobal && !persona.IsValid(persona.Persona(scope)) {
		return fmt.Errorf("scope must be %q or a persona name", journalmem.ScopeGlobal)
	}

	id, err := a.store.InsertInstruction(context.Background(), userFlag, scope, args[0])
	if err != nil {
		return err
	}
	fmt.Printf("instruction %d recorded (scope: %s)\n", id, scope)
	return nil
}

func runBackfill(cmd *cobra.Command, args []string) error {
	a := mustSetup()
	defer a.close()

	if !a.store.HasEmbedder() {
		return fmt.Errorf("no embedder configured, set EMBEDDER_PROVIDER")
	}

	done, err := a.store.BackfillEmbeddings(context.Background(), limitFlag)
	if err != nil {
		return err
	}
	fmt.Printf("embedded %d entries\n", done)
	return nil
}

func runForget(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid id %q", args[0])
	}

	a := mustSetup()
	defer a.close()

	ctx := context.Background()

	if entryFlag {
		if err := a.store.DeleteEntry(ctx, id); err != nil {
			return err
		}
		fmt.Printf("journal entry %d deleted\n", id)
		return nil
	}

	turn, err := a.store.GetTurn(ctx, id)
	if err != nil {
		return err
	}
	if turn == nil {
		return fmt.Errorf("turn %d not found", id)
	}

	if err := a.store.DeleteTurn(ctx, id); err != nil {
		return err
	}
	fmt.Printf("turn %d deleted ([%s] %s)\n", id, turn.CreatedAt.Format("2006-01-02"), turn.Persona)
	return nil
}
