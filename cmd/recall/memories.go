package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/konuslabs/recall/config"
	"github.com/konuslabs/recall/memory"
	"github.com/konuslabs/recall/memory/store/sqlite"
)

func init() {
	memoriesCmd := &cobra.Command{
		Use:   "memories",
		Short: "Inspect and manage stored memories",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List memories, newest first",
		Run:   runMemoriesList,
	}
	listCmd.Flags().Bool("deleted", false, "Include soft-deleted records")

	rmCmd := &cobra.Command{
		Use:   "rm <id>",
		Short: "Soft-delete a memory",
		Args:  cobra.ExactArgs(1),
		Run:   runMemoriesRm,
	}

	clearOldCmd := &cobra.Command{
		Use:   "clear-old",
		Short: "Soft-delete memories past the retention age",
		Run:   runMemoriesClearOld,
	}
	clearOldCmd.Flags().Int("months", 0, "Age threshold in months (default: configured retention)")

	memoriesCmd.AddCommand(listCmd, rmCmd, clearOldCmd)
	rootCmd.AddCommand(memoriesCmd)
}

// openStore opens the store directly; management commands do not need
// the LLM side of the engine.
func openStore() (*sqlite.Store, *config.Config) {
	cfg, err := config.Load(configPath)
	if err != nil {
		exitErr("load config", err)
	}
	store, err := sqlite.New(cfg.Storage.Path)
	if err != nil {
		exitErr("open store", err)
	}
	return store, cfg
}

func runMemoriesList(cmd *cobra.Command, args []string) {
	includeDeleted, _ := cmd.Flags().GetBool("deleted")

	store, _ := openStore()
	defer store.Close()

	records, err := store.List(cmd.Context(), userID, scopeID, memory.ListOptions{
		IncludeDeleted: includeDeleted,
		Descending:     true,
	})
	if err != nil {
		exitErr("list memories", err)
	}

	if len(records) == 0 {
		fmt.Println("no memories")
		return
	}
	for _, rec := range records {
		status := " "
		if rec.Deleted {
			status = "D"
		}
		fmt.Printf("%s %s  [%s, importance %d, round %d]  %s\n",
			status, rec.ID, rec.Kind, rec.Importance, rec.Round, rec.Summary)
		if points := rec.ParseKeyPoints(); len(points) > 0 {
			fmt.Printf("    %s\n", strings.Join(points, "; "))
		}
	}
}

func runMemoriesRm(cmd *cobra.Command, args []string) {
	store, _ := openStore()
	defer store.Close()

	if err := store.SoftDelete(cmd.Context(), userID, args[0]); err != nil {
		exitErr("delete memory", err)
	}
	fmt.Printf("deleted %s\n", args[0])
}

func runMemoriesClearOld(cmd *cobra.Command, args []string) {
	months, _ := cmd.Flags().GetInt("months")

	store, cfg := openStore()
	defer store.Close()

	job := memory.NewRetentionJob(store, cfg.Memory.RetentionMonths, 0)
	n, err := job.SweepScope(cmd.Context(), userID, scopeID, months)
	if err != nil {
		exitErr("clear old memories", err)
	}
	fmt.Printf("soft-deleted %d memories\n", n)
}
