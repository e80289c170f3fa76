package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/3leaps/floratings/internal/jobs"
)

var jobsDir string

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List and inspect background job runs",
}

var jobsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List background crawl/rate/evaluate jobs",
	RunE:  runJobsList,
}

var jobsShowCmd = &cobra.Command{
	Use:   "show <job-id>",
	Short: "Show details for a single job",
	Args:  cobra.ExactArgs(1),
	RunE:  runJobsShow,
}

func init() {
	rootCmd.AddCommand(jobsCmd)
	jobsCmd.PersistentFlags().StringVar(&jobsDir, "jobs-dir", defaultJobsDir(), "Directory where job records are stored")
	jobsCmd.AddCommand(jobsListCmd)
	jobsCmd.AddCommand(jobsShowCmd)
}

func defaultJobsDir() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return ".floratings/jobs"
	}
	return filepath.Join(configDir, "floratings", "jobs")
}

func runJobsList(cmd *cobra.Command, args []string) error {
	registry := jobs.NewRegistry(jobsDir)
	records, err := registry.List()
	if err != nil {
		return exitError(1, "Failed to list jobs", err)
	}
	if len(records) == 0 {
		fmt.Println("No jobs found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "JOB ID\tCOMMAND\tSTATE\tPID\tSTARTED")
	for _, rec := range records {
		started := "-"
		if rec.StartedAt != nil {
			started = rec.StartedAt.Local().Format("2006-01-02 15:04:05")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", rec.JobID, rec.Command, rec.State, rec.PID, started)
	}
	return w.Flush()
}

func runJobsShow(cmd *cobra.Command, args []string) error {
	registry := jobs.NewRegistry(jobsDir)
	rec, err := registry.Get(args[0])
	if err != nil {
		return exitError(1, "Failed to load job", err)
	}

	fmt.Printf("Job ID:   %s\n", rec.JobID)
	fmt.Printf("Command:  %s %v\n", rec.Command, rec.Args)
	fmt.Printf("State:    %s\n", rec.State)
	fmt.Printf("PID:      %d\n", rec.PID)
	fmt.Printf("Created:  %s\n", rec.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	if rec.StartedAt != nil {
		fmt.Printf("Started:  %s\n", rec.StartedAt.Local().Format("2006-01-02 15:04:05"))
	}
	if rec.EndedAt != nil {
		fmt.Printf("Ended:    %s (duration %s)\n", rec.EndedAt.Local().Format("2006-01-02 15:04:05"), rec.EndedAt.Sub(*rec.StartedAt))
		fmt.Printf("Exit code: %d\n", rec.ExitCode)
	}
	fmt.Printf("Stdout:   %s\n", rec.StdoutPath)
	fmt.Printf("Stderr:   %s\n", rec.StderrPath)
	return nil
}
