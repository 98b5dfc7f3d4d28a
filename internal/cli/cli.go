// Package cli wires the local task-management subcommands. They operate
// directly on a file store, which suits one-off inspection and seeding; the
// running daemon is driven over its HTTP surface instead.
package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/shaonsikder1952/Sentinel/internal/log"
	internal_storage "github.com/shaonsikder1952/Sentinel/internal/storage"
	"github.com/shaonsikder1952/Sentinel/pkg/models"
	"github.com/shaonsikder1952/Sentinel/pkg/service"
)

func SetupCLI(rootCmd *cobra.Command) {
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a task from a workflow definition file",
		Run: func(cmd *cobra.Command, args []string) {
			manager := initManager(cmd)
			name, _ := cmd.Flags().GetString("name")
			workflowFile, _ := cmd.Flags().GetString("workflow")
			if name == "" || workflowFile == "" {
				fmt.Fprintln(os.Stderr, "Error: --name and --workflow are required")
				os.Exit(1)
			}

			data, err := os.ReadFile(workflowFile)
			if err != nil {
				fail("read workflow file", err)
			}
			var workflow models.Workflow
			if err := json.Unmarshal(data, &workflow); err != nil {
				fail("parse workflow file", err)
			}

			task, err := manager.CreateTask(service.CreateTaskRequest{
				Name:     name,
				Source:   models.UserManualSource,
				Workflow: workflow,
			})
			if err != nil {
				fail("create task", err)
			}
			fmt.Fprintf(os.Stdout, "Created task '%s' with ID %s\n", task.Name, task.ID)
		},
	}
	createCmd.Flags().String("name", "", "Task name")
	createCmd.Flags().String("workflow", "", "Path to a workflow definition JSON file")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List all tasks",
		Run: func(cmd *cobra.Command, args []string) {
			manager := initManager(cmd)
			tasks := manager.ListAll()
			if len(tasks) == 0 {
				fmt.Fprintln(os.Stdout, "No tasks found.")
				return
			}
			for _, t := range tasks {
				fmt.Fprintf(os.Stdout, "- ID: %s, Name: %s, Status: %s, Created: %s\n",
					t.ID, t.Name, t.Status, t.CreatedAt.Format(time.RFC3339))
			}
		},
	}

	getCmd := &cobra.Command{
		Use:   "get [id]",
		Short: "Show one task as JSON",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			manager := initManager(cmd)
			task, ok := manager.GetTask(args[0])
			if !ok {
				fmt.Fprintf(os.Stderr, "Error: task %s not found\n", args[0])
				os.Exit(1)
			}
			out, err := json.MarshalIndent(task, "", "  ")
			if err != nil {
				fail("encode task", err)
			}
			fmt.Fprintln(os.Stdout, string(out))
		},
	}

	approveCmd := &cobra.Command{
		Use:   "approve [id]",
		Short: "Grant an approval gate on a task",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			manager := initManager(cmd)
			gate, _ := cmd.Flags().GetString("gate")
			if gate != string(models.PreApprovalGate) && gate != string(models.PostApprovalGate) {
				fmt.Fprintf(os.Stderr, "Error: --gate must be 'pre' or 'post'\n")
				os.Exit(1)
			}
			if err := manager.Approve(args[0], models.ApprovalGate(gate)); err != nil {
				fail("approve task", err)
			}
			fmt.Fprintf(os.Stdout, "Granted %s approval on task %s\n", gate, args[0])
		},
	}
	approveCmd.Flags().String("gate", "pre", "Approval gate to grant (pre or post)")

	startCmd := &cobra.Command{
		Use:   "start [id]",
		Short: "Start a task",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			manager := initManager(cmd)
			if err := manager.Start(args[0]); err != nil {
				fail("start task", err)
			}
			fmt.Fprintf(os.Stdout, "Started task %s\n", args[0])
		},
	}

	rootCmd.PersistentFlags().String("storage", "./storage", "Storage directory for the file backend")
	rootCmd.AddCommand(createCmd, listCmd, getCmd, approveCmd, startCmd)
}

func initManager(cmd *cobra.Command) *service.TaskManager {
	path, _ := cmd.Flags().GetString("storage")
	store, err := internal_storage.NewFileStore(path)
	if err != nil {
		fail("initialize store", err)
	}
	memory, err := service.NewMemoryService(store, log.GetLogger())
	if err != nil {
		fail("initialize memory service", err)
	}
	return service.NewTaskManager(memory, log.GetLogger())
}

func fail(op string, err error) {
	log.GetLogger().Errorf("Failed to %s: %v", op, err)
	fmt.Fprintf(os.Stderr, "Error: failed to %s: %v\n", op, err)
	os.Exit(1)
}
