package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/peterh/liner"

	"github.com/wuzeru/agent-memory/pkg/agentmem"
	"github.com/wuzeru/agent-memory/pkg/config"
	"github.com/wuzeru/agent-memory/pkg/log"
	"github.com/wuzeru/agent-memory/pkg/memory"
	"github.com/wuzeru/agent-memory/pkg/skills"
)

// Constants for the command-line interface
const (
	cmdHelp         = "!help"
	cmdQuit         = "!quit"
	cmdIngest       = "!ingest"
	cmdRemember     = "!remember"
	cmdRecall       = "!recall"
	cmdSkills       = "!skills"
	cmdExec         = "!exec"
	cmdRecommend    = "!recommend"
	cmdStats        = "!stats"
	cmdClear        = "!clear"
	cmdClearHistory = "!clearhistory"
)

// Command-line help text
const helpText = `
Agent Memory - Command Reference:
---------------------------------
!help                 - Show this help message
!ingest <path>        - Ingest a text file into memory
!remember <text>      - Store a single memory entry
!recall <query>       - Retrieve memories matching query
!skills               - List registered skills
!exec <skill> <query> - Execute a skill with recalled context
!recommend <query>    - Rank skills for a query
!stats                - Show memory store statistics
!clear                - Empty the memory store
!clearhistory         - Empty the skill execution history
!quit                 - Exit the application

Notes:
- Regular text input is treated as a recall query
- Tab completion is available for commands
- Use up/down arrows for command history`

// historyFile is the file where command history is stored
const historyFile = ".agent_memory_history"

func main() {
	// Load .env if present, before config reads the environment
	_ = godotenv.Load()

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log.Setup(log.Config{
		Level:  log.Level(cfg.Logging.Level),
		Format: log.Format(cfg.Logging.Format),
	})

	log.Info("Starting agent memory CLI")

	client, err := agentmem.NewFromConfig(cfg)
	if err != nil {
		log.Error("Failed to initialize client", "error", err)
		os.Exit(1)
	}
	defer client.Close()

	registerBuiltinSkills(client)

	runCLI(client, cfg)
}

// loadConfig loads the application configuration from standard locations,
// falling back to defaults.
func loadConfig() (*config.Config, error) {
	configPaths := []string{
		"./configs/config.yaml",
		"./config.yaml",
		"../configs/config.yaml",
	}

	for _, path := range configPaths {
		if _, statErr := os.Stat(path); statErr == nil {
			cfg, err := config.LoadFromFile(path)
			if err != nil {
				return nil, fmt.Errorf("failed to load %s: %w", path, err)
			}
			return cfg, nil
		}
	}

	return config.Default(), nil
}

// registerBuiltinSkills adds a couple of demonstration skills so the skill
// commands work out of the box.
func registerBuiltinSkills(client *agentmem.Client) {
	client.RegisterSkill(skills.Skill{
		ID:          "echo",
		Name:        "Echo",
		Description: "Repeats the query back, useful for testing skill plumbing",
		Handler: func(ctx context.Context, execCtx skills.ExecutionContext) (skills.Payload, error) {
			return skills.TextPayload(execCtx.Query), nil
		},
	})

	client.RegisterSkill(skills.Skill{
		ID:          "memory-summary",
		Name:        "Memory Summary",
		Description: "Summarizes the memories recalled for the query",
		Handler: func(ctx context.Context, execCtx skills.ExecutionContext) (skills.Payload, error) {
			if len(execCtx.Memories) == 0 {
				return skills.TextPayload("no related memories found"), nil
			}
			var sb strings.Builder
			fmt.Fprintf(&sb, "%d related memories:\n", len(execCtx.Memories))
			for _, result := range execCtx.Memories {
				fmt.Fprintf(&sb, "- [%.2f] %s\n", result.Similarity, snippet(result.Entry.Content, 120))
			}
			return skills.TextPayload(sb.String()), nil
		},
	})
}

// runCLI starts the command-line interface for user interaction
func runCLI(client *agentmem.Client, cfg *config.Config) {
	ctx := context.Background()

	line := liner.NewLiner()
	defer line.Close()

	line.SetCtrlCAborts(true)
	line.SetMultiLineMode(false)

	line.SetCompleter(func(line string) (c []string) {
		commands := []string{
			cmdHelp, cmdQuit, cmdIngest, cmdRemember, cmdRecall,
			cmdSkills, cmdExec, cmdRecommend, cmdStats, cmdClear, cmdClearHistory,
		}
		for _, cmd := range commands {
			if strings.HasPrefix(cmd, line) {
				c = append(c, cmd)
			}
		}
		return
	})

	if f, err := os.Open(historyFile); err == nil {
		line.ReadHistory(f)
		f.Close()
	}
	defer func() {
		if f, err := os.Create(historyFile); err == nil {
			line.WriteHistory(f)
			f.Close()
		}
	}()

	fmt.Println("\n=== Agent Memory ===")
	fmt.Println("Store:", storeName(cfg))
	fmt.Println("Type !help for available commands.")

	for {
		input, err := line.Prompt("memory> ")
		if err != nil {
			if err == liner.ErrPromptAborted || err == io.EOF {
				fmt.Println("\nGoodbye!")
				break
			}
			fmt.Printf("Error reading input: %v\n", err)
			continue
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		if !strings.HasPrefix(input, "!") {
			doRecall(ctx, client, input)
			continue
		}

		parts := strings.SplitN(input, " ", 2)
		cmd := parts[0]
		arg := ""
		if len(parts) > 1 {
			arg = strings.TrimSpace(parts[1])
		}

		switch cmd {
		case cmdHelp:
			fmt.Println(helpText)

		case cmdQuit:
			fmt.Println("Goodbye!")
			return

		case cmdIngest:
			if arg == "" {
				fmt.Println("Usage: !ingest <path>")
				continue
			}
			ids, err := client.Ingest(ctx, arg, agentmem.IngestOptions{})
			if err != nil {
				fmt.Printf("Error ingesting file: %v\n", err)
				continue
			}
			fmt.Printf("Ingested %d entries: %s\n", len(ids), strings.Join(ids, ", "))

		case cmdRemember:
			if arg == "" {
				fmt.Println("Usage: !remember <text>")
				continue
			}
			id, err := client.IngestText(ctx, arg, agentmem.IngestOptions{})
			if err != nil {
				fmt.Printf("Error storing memory: %v\n", err)
				continue
			}
			fmt.Printf("Stored memory %s\n", id)

		case cmdRecall:
			if arg == "" {
				fmt.Println("Usage: !recall <query>")
				continue
			}
			doRecall(ctx, client, arg)

		case cmdSkills:
			list := client.Skills()
			if len(list) == 0 {
				fmt.Println("No skills registered.")
				continue
			}
			for _, skill := range list {
				fmt.Printf("%-16s %s - %s\n", skill.ID, skill.Name, skill.Description)
			}

		case cmdExec:
			execParts := strings.SplitN(arg, " ", 2)
			if len(execParts) < 2 {
				fmt.Println("Usage: !exec <skill> <query>")
				continue
			}
			result, err := client.ExecuteSkill(ctx, execParts[0], execParts[1])
			if err != nil {
				fmt.Printf("Error executing skill: %v\n", err)
				continue
			}
			printResult(result)

		case cmdRecommend:
			if arg == "" {
				fmt.Println("Usage: !recommend <query>")
				continue
			}
			recommendations, err := client.RecommendSkills(ctx, arg, 5)
			if err != nil {
				fmt.Printf("Error recommending skills: %v\n", err)
				continue
			}
			for _, rec := range recommendations {
				fmt.Printf("%-16s confidence=%.2f  %s\n", rec.SkillID, rec.Confidence, rec.Reason)
			}

		case cmdStats:
			stats, err := client.Stats(ctx)
			if err != nil {
				fmt.Printf("Error fetching stats: %v\n", err)
				continue
			}
			printStats(stats)

		case cmdClear:
			if err := client.Clear(ctx); err != nil {
				fmt.Printf("Error clearing memory: %v\n", err)
				continue
			}
			fmt.Println("Memory store cleared.")

		case cmdClearHistory:
			if err := client.ClearHistory(ctx); err != nil {
				fmt.Printf("Error clearing history: %v\n", err)
				continue
			}
			fmt.Println("Skill history cleared.")

		default:
			fmt.Printf("Unknown command: %s\nType !help for available commands.\n", cmd)
		}
	}
}

// doRecall runs a recall query and prints the results.
func doRecall(ctx context.Context, client *agentmem.Client, query string) {
	results, err := client.Recall(ctx, query, agentmem.RecallOptions{})
	if err != nil {
		fmt.Printf("Error recalling memories: %v\n", err)
		return
	}
	if len(results) == 0 {
		fmt.Println("No matching memories.")
		return
	}
	for _, result := range results {
		fmt.Printf("[%.3f] %s\n", result.Similarity, snippet(result.Entry.Content, 160))
	}
}

// printResult prints a skill result, decoding text payloads.
func printResult(result skills.Result) {
	if !result.Success {
		fmt.Printf("Skill failed: %s\n", result.Error)
		return
	}
	if result.Output.ContentType == "text/plain" {
		var text string
		if err := json.Unmarshal(result.Output.Data, &text); err == nil {
			fmt.Println(text)
			return
		}
	}
	fmt.Printf("[%s] %s\n", result.Output.ContentType, string(result.Output.Data))
}

// printStats prints store statistics.
func printStats(stats memory.Stats) {
	fmt.Printf("Total entries: %d\n", stats.TotalCount)
	for memType, count := range stats.CountsByType {
		fmt.Printf("  %-16s %d\n", memType, count)
	}
	if stats.TotalCount > 0 {
		fmt.Printf("Oldest: %s\nNewest: %s\n",
			stats.Oldest.Format("2006-01-02 15:04:05"),
			stats.Newest.Format("2006-01-02 15:04:05"))
	}
}

// storeName describes the configured store backend for the banner.
func storeName(cfg *config.Config) string {
	if cfg.Memory.Store == "" {
		return "file"
	}
	return cfg.Memory.Store
}

// snippet truncates text for single-line display.
func snippet(text string, max int) string {
	text = strings.ReplaceAll(text, "\n", " ")
	if len(text) <= max {
		return text
	}
	return text[:max] + "..."
}
