package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kubexec/kubexec/internal/config"
	"github.com/kubexec/kubexec/internal/executor"
	"github.com/kubexec/kubexec/internal/k8s"
	"github.com/kubexec/kubexec/internal/logging"
)

// exitCodeInterrupted is returned when the run is stopped by SIGINT/SIGTERM,
// matching the shell convention of 128+SIGINT.
const exitCodeInterrupted = 130

// rootOpts holds the flag values for the root command.
var rootOpts struct {
	dockerImage  string
	namespace    string
	podName      string
	memory       string
	cpu          string
	workdir      string
	volumeMounts []string
	configPath   string
	kubeContext  string
	kubeconfig   string
	createPod    bool
	cleanup      bool
	noCleanup    bool
	timeout      time.Duration
	verbose      bool
	dryRun       bool
}

// exitStatus carries the in-container command's exit code from RunE to
// Execute.
var exitStatus int

// rootCmd represents the base command for the kubexec application. Running it
// without a subcommand executes TARGET on the cluster.
var rootCmd = &cobra.Command{
	Use:   "kubexec TARGET",
	Short: "Run commands and scripts inside Kubernetes pods",
	Long: `kubexec runs a shell command or a local script inside a Kubernetes pod.

TARGET is either an inline command string, the path of a script file
(detected by extension or the executable bit), or, together with
--pod-name, a command to run in an already-running pod. Without an
existing pod a one-shot Job is created, its output streamed, and the
in-container exit code becomes kubexec's exit code.`,
	Example: `  kubexec 'echo hello'
  kubexec ./analysis.py
  kubexec -p worker-0 'ls /shared/team'
  kubexec -d python:3.12 -m 4Gi -c 2 ./train.sh`,
	Args:         cobra.MinimumNArgs(1),
	SilenceUsage: true,
	RunE:         runRoot,
}

// SetVersion sets the version for the root command. Called from the main
// package to inject the build-time version.
func SetVersion(v string) {
	rootCmd.Version = v
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	rootCmd.SetVersionTemplate(`{{printf "kubexec version %s\n" .Version}}`)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if ctx.Err() != nil {
			return exitCodeInterrupted
		}
		if exitStatus == 0 {
			return 1
		}
	}
	return exitStatus
}

func runRoot(cmd *cobra.Command, args []string) error {
	logger := newLogger()

	cfg, err := config.Load(rootOpts.configPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("timeout") {
		cfg.TimeoutSeconds = int(rootOpts.timeout.Seconds())
	}
	if cfg.Verbose && !rootOpts.verbose {
		logger = logging.NewLogger(os.Stderr, logging.LevelDebug)
	}

	client, err := newK8sClient(logger)
	if err != nil {
		return fmt.Errorf("failed to create kubernetes client: %w", err)
	}
	logger.Debug("kubernetes client ready", logging.Context(client.CurrentContext()))

	var cleanup *bool
	switch {
	case rootOpts.noCleanup:
		disabled := false
		cleanup = &disabled
	case cmd.Flags().Changed("cleanup"):
		cleanup = &rootOpts.cleanup
	}

	exec := executor.New(cfg, client, logger, os.Stdout, os.Stderr)

	code, err := exec.Execute(cmd.Context(), executor.Options{
		Target:       strings.Join(args, " "),
		DockerImage:  rootOpts.dockerImage,
		Namespace:    rootOpts.namespace,
		PodName:      rootOpts.podName,
		Memory:       rootOpts.memory,
		CPU:          rootOpts.cpu,
		Workdir:      rootOpts.workdir,
		VolumeMounts: rootOpts.volumeMounts,
		CreatePod:    rootOpts.createPod,
		Cleanup:      cleanup,
		DryRun:       rootOpts.dryRun,
	})
	exitStatus = code
	return err
}

// newLogger builds the CLI logger writing to stderr so command output on
// stdout stays clean. KUBEXEC_LOG_LEVEL selects the level; --verbose
// forces debug.
func newLogger() *slog.Logger {
	level := logging.LevelWarn
	if value := os.Getenv("KUBEXEC_LOG_LEVEL"); value != "" {
		level = logging.ParseLevel(value)
	}
	if rootOpts.verbose {
		level = logging.LevelDebug
	}
	return logging.NewLogger(os.Stderr, level)
}

// newK8sClient creates the cluster client from the shared connection flags.
func newK8sClient(logger *slog.Logger) (k8s.Client, error) {
	return k8s.NewClient(&k8s.ClientConfig{
		KubeconfigPath: rootOpts.kubeconfig,
		Context:        rootOpts.kubeContext,
		Logger:         logger,
	})
}

func init() {
	flags := rootCmd.Flags()
	flags.StringVarP(&rootOpts.dockerImage, "docker-image", "d", "", "container image for new jobs")
	flags.StringVarP(&rootOpts.podName, "pod-name", "p", "", "existing pod to execute in")
	flags.StringVarP(&rootOpts.memory, "memory", "m", "", "memory limit (e.g. 512Mi, 2Gi)")
	flags.StringVarP(&rootOpts.cpu, "cpu", "c", "", "CPU limit (e.g. 0.5, 500m)")
	flags.StringVarP(&rootOpts.workdir, "workdir", "w", "", "working directory inside the container")
	flags.StringArrayVarP(&rootOpts.volumeMounts, "volume-mount", "v", nil, "host path mount as host_path:pod_path[:ro] (repeatable)")
	flags.BoolVar(&rootOpts.createPod, "create-pod", false, "always create a new job, even when --pod-name exists")
	flags.BoolVar(&rootOpts.cleanup, "cleanup", true, "delete the job after execution")
	flags.BoolVar(&rootOpts.noCleanup, "no-cleanup", false, "keep the job after execution")
	flags.DurationVar(&rootOpts.timeout, "timeout", time.Hour, "overall execution timeout")
	flags.BoolVar(&rootOpts.dryRun, "dry-run", false, "print what would run without touching the cluster")

	persistent := rootCmd.PersistentFlags()
	persistent.StringVarP(&rootOpts.namespace, "namespace", "n", "", "kubernetes namespace (default: auto-detected)")
	persistent.StringVar(&rootOpts.configPath, "config", "", "config file path")
	persistent.StringVar(&rootOpts.kubeContext, "context", "", "kubeconfig context")
	persistent.StringVar(&rootOpts.kubeconfig, "kubeconfig", "", "kubeconfig file path")
	persistent.BoolVar(&rootOpts.verbose, "verbose", false, "enable debug logging")

	rootCmd.AddCommand(newListCmd())
	rootCmd.AddCommand(newJobsCmd())
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newSelfUpdateCmd())
}
