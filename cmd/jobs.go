package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kubexec/kubexec/internal/config"
	"github.com/kubexec/kubexec/internal/executor"
	"github.com/kubexec/kubexec/internal/output"
)

func newJobsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List jobs created by kubexec",
		Long: `jobs prints the Jobs kubexec created in the target namespace, with
their status, image and age. Jobs normally disappear shortly after they
finish; ones started with --no-cleanup stay around until 'jobs cleanup'
removes them.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			exec, namespace, err := newJobsExecutor()
			if err != nil {
				return err
			}

			jobs, err := exec.ListJobs(cmd.Context(), namespace)
			if err != nil {
				return err
			}
			return output.JobTable(cmd.OutOrStdout(), jobs, output.Options{
				Color: stdoutIsTerminal(),
			})
		},
	}

	cmd.AddCommand(newJobsCleanupCmd())
	return cmd
}

func newJobsCleanupCmd() *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete old kubexec jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			exec, namespace, err := newJobsExecutor()
			if err != nil {
				return err
			}

			cleaned, err := exec.CleanupOldJobs(cmd.Context(), namespace, olderThan)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d job(s)\n", cleaned)
			return nil
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 24*time.Hour, "delete jobs older than this duration")
	return cmd
}

// newJobsExecutor builds the executor and resolves the namespace for the jobs
// subcommands.
func newJobsExecutor() (*executor.Executor, string, error) {
	logger := newLogger()

	cfg, err := config.Load(rootOpts.configPath)
	if err != nil {
		return nil, "", err
	}

	client, err := newK8sClient(logger)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create kubernetes client: %w", err)
	}

	namespace := rootOpts.namespace
	if namespace == "" {
		namespace = cfg.Namespace
	}
	if namespace == "" {
		namespace = client.CurrentNamespace()
	}

	return executor.New(cfg, client, logger, nil, nil), namespace, nil
}
