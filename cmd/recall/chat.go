package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/konuslabs/recall/config"
	"github.com/konuslabs/recall/core"
)

func init() {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Interactive chat REPL",
		Long:  "Starts a chat session. The full history is client-side and resent on every turn; memory extraction and trimming happen automatically at round boundaries.",
		Run:   runChat,
	}
	rootCmd.AddCommand(cmd)
}

func runChat(cmd *cobra.Command, args []string) {
	cfg, err := config.Load(configPath)
	if err != nil {
		exitErr("load config", err)
	}

	eng, err := buildEngine(cfg)
	if err != nil {
		exitErr("build engine", err)
	}
	defer eng.Close()

	fmt.Printf("recall chat (user=%s scope=%s). Type /quit to exit.\n\n", userID, scopeID)

	// The REPL owns the history. Each request sends it whole; the engine
	// trims its outbound copy but the local history keeps growing so the
	// turn count stays accurate across round boundaries.
	var history []core.Message
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "/quit" || line == "/exit" {
			break
		}

		history = append(history, core.Message{Role: core.RoleUser, Content: line})

		resp, err := eng.Chat(cmd.Context(), userID, &core.ChatRequest{
			Messages: history,
			ScopeID:  scopeID,
		})
		if err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			// Drop the failed turn so the count matches what the model saw.
			history = history[:len(history)-1]
			continue
		}

		history = append(history, core.Message{Role: core.RoleAssistant, Content: resp.Message})
		fmt.Printf("\n%s\n\n", resp.Message)
	}
}
