package executor

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"sigs.k8s.io/yaml"

	"github.com/kubexec/kubexec/internal/config"
	"github.com/kubexec/kubexec/internal/k8s"
	"github.com/kubexec/kubexec/internal/logging"
)

// jobNameBase is the prefix of generated job names.
const jobNameBase = "kubexec-job"

// cleanupTimeout bounds job deletion after the run finished or was cancelled.
const cleanupTimeout = 30 * time.Second

// Options are the per-invocation overrides layered on top of the config.
type Options struct {
	Target       string
	DockerImage  string
	Namespace    string
	PodName      string
	Memory       string
	CPU          string
	Workdir      string
	VolumeMounts []string
	CreatePod    bool
	Cleanup      *bool
	DryRun       bool
}

// Executor runs a target command or script on the cluster.
type Executor struct {
	cfg    *config.Config
	client k8s.Client
	logger *slog.Logger

	stdout io.Writer
	stderr io.Writer

	// getwd is swappable in tests
	getwd func() (string, error)
}

// New creates an Executor writing command output to stdout and stderr.
func New(cfg *config.Config, client k8s.Client, logger *slog.Logger, stdout, stderr io.Writer) *Executor {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Executor{
		cfg:    cfg,
		client: client,
		logger: logger,
		stdout: stdout,
		stderr: stderr,
		getwd:  os.Getwd,
	}
}

// Execute runs the target and returns the exit code to surface to the shell.
func (e *Executor) Execute(ctx context.Context, opts Options) (int, error) {
	image := firstNonEmpty(opts.DockerImage, e.cfg.DockerImage)
	namespace := firstNonEmpty(opts.Namespace, e.cfg.Namespace, e.client.CurrentNamespace())
	workdir := firstNonEmpty(opts.Workdir, e.cfg.Workdir)

	memory, err := ValidateMemory(firstNonEmpty(opts.Memory, e.cfg.Memory))
	if err != nil {
		return 1, err
	}
	cpu, err := ValidateCPU(firstNonEmpty(opts.CPU, e.cfg.CPU))
	if err != nil {
		return 1, err
	}

	cleanup := e.cfg.Cleanup
	if opts.Cleanup != nil {
		cleanup = *opts.Cleanup
	}

	if opts.PodName != "" && !opts.CreatePod {
		exists, err := e.client.PodExists(ctx, namespace, opts.PodName)
		if err != nil {
			return 1, err
		}
		if exists {
			return e.execInExistingPod(ctx, opts.Target, namespace, opts.PodName, opts.DryRun)
		}
		e.logger.Debug("pod not found, falling back to a new job", logging.Pod(opts.PodName), logging.Namespace(namespace))
	}

	return e.runJob(ctx, jobParams{
		target:       opts.Target,
		image:        image,
		namespace:    namespace,
		memory:       memory,
		cpu:          cpu,
		workdir:      workdir,
		volumeMounts: opts.VolumeMounts,
		cleanup:      cleanup,
		dryRun:       opts.DryRun,
	})
}

// execInExistingPod execs the target inside an already-running pod. Volumes
// cannot be mounted into an existing pod, so scripts are shipped through the
// exec stream itself.
func (e *Executor) execInExistingPod(ctx context.Context, target, namespace, podName string, dryRun bool) (int, error) {
	var command []string
	if IsScriptFile(target) {
		content, err := ReadScript(target)
		if err != nil {
			return 1, err
		}
		command = scriptCommand(filepath.Base(target), content, "")
	} else {
		command = shellCommand(target, "")
	}

	if dryRun {
		fmt.Fprintf(e.stdout, "Would execute in pod %s: %s\n", podName, strings.Join(command, " "))
		return 0, nil
	}

	logger := logging.WithOperation(e.logger, "exec")
	logger.Info("executing in existing pod", logging.Pod(podName), logging.Namespace(namespace))

	result, err := e.client.Exec(ctx, namespace, podName, "", command, k8s.ExecOptions{
		Stdout: e.stdout,
		Stderr: e.stderr,
	})
	if err != nil {
		return 1, err
	}

	return result.ExitCode, nil
}

type jobParams struct {
	target       string
	image        string
	namespace    string
	memory       string
	cpu          string
	workdir      string
	volumeMounts []string
	cleanup      bool
	dryRun       bool
}

// runJob materializes a one-shot Job for the target, streams its output and
// waits for completion.
func (e *Executor) runJob(ctx context.Context, params jobParams) (int, error) {
	name := MakeUniqueName(jobNameBase)

	command, err := e.prepareCommand(params.target)
	if err != nil {
		return 1, err
	}

	hostPaths, err := ParseVolumeMounts(params.volumeMounts)
	if err != nil {
		return 1, err
	}

	job, err := BuildJob(JobSpec{
		Name:                         name,
		Namespace:                    params.namespace,
		Image:                        params.image,
		Command:                      command,
		Memory:                       params.memory,
		CPU:                          params.cpu,
		Workdir:                      params.workdir,
		TTLSecondsAfterFinished:      e.cfg.TTLSecondsAfterFinished,
		SecurityContext:              e.cfg.SecurityContext,
		NodeSelector:                 e.cfg.NodeSelector,
		AutomountServiceAccountToken: e.cfg.AutomountServiceAccountToken,
		SharedVolumes:                e.cfg.SharedVolumes,
		HostPathMounts:               hostPaths,
	})
	if err != nil {
		return 1, err
	}

	if params.dryRun {
		manifest, err := yaml.Marshal(job)
		if err != nil {
			return 1, fmt.Errorf("failed to render job manifest: %w", err)
		}
		fmt.Fprintf(e.stdout, "Would create job %s with image %s:\n---\n%s", name, params.image, manifest)
		return 0, nil
	}

	start := time.Now()
	logger := logging.WithOperation(logging.WithNamespace(e.logger, params.namespace), "job")
	logger.Info("creating job", logging.Job(name), logging.Image(params.image))

	if _, err := e.client.CreateJob(ctx, job); err != nil {
		return 1, err
	}

	if params.cleanup {
		defer func() {
			// Deletion still runs when the surrounding context was
			// cancelled or timed out.
			cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
			defer cancel()

			logger.Info("cleaning up job", logging.Job(name))
			if err := e.client.DeleteJob(cleanupCtx, params.namespace, name); err != nil {
				logger.Warn("failed to clean up job", logging.Job(name), logging.Err(err))
			}
		}()
	}

	runCtx, cancel := context.WithTimeout(ctx, e.cfg.Timeout())
	defer cancel()

	succeeded, err := e.awaitJob(runCtx, params.namespace, name)
	if err != nil {
		return 1, err
	}

	logger.Info("job finished",
		logging.Job(name),
		logging.Status(statusString(succeeded)),
		logging.Duration(time.Since(start)))

	if succeeded {
		return 0, nil
	}

	// Surface the container's exit code where the pod still reports one.
	if pod, err := e.client.JobPod(context.WithoutCancel(ctx), params.namespace, name); err == nil {
		if code, ok := k8s.PodExitCode(pod, ContainerName); ok && code != 0 {
			return code, nil
		}
	}
	return 1, nil
}

// awaitJob waits for the job to finish while streaming its pod's logs.
func (e *Executor) awaitJob(ctx context.Context, namespace, name string) (bool, error) {
	var succeeded bool
	var streamed atomic.Bool

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		done, err := e.client.WaitForJob(gctx, namespace, name)
		succeeded = done
		return err
	})

	g.Go(func() error {
		// Log streaming is best effort: the condition wait reports the
		// authoritative outcome, and logs are re-fetched below when the
		// stream never attached.
		pod, err := e.client.WaitForJobPod(gctx, namespace, name)
		if err != nil {
			return nil
		}
		logs, err := e.client.GetLogs(gctx, namespace, pod.Name, ContainerName, k8s.LogOptions{Follow: true})
		if err != nil {
			e.logger.Debug("could not attach to job logs",
				logging.Pod(pod.Name), logging.Container(ContainerName), logging.Err(err))
			return nil
		}
		defer logs.Close()

		if _, err := io.Copy(e.stdout, logs); err == nil {
			streamed.Store(true)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return false, err
	}

	if !streamed.Load() {
		e.fetchLogs(context.WithoutCancel(ctx), namespace, name)
	}

	return succeeded, nil
}

// fetchLogs copies the finished job pod's logs to stdout in one shot.
func (e *Executor) fetchLogs(ctx context.Context, namespace, name string) {
	pod, err := e.client.JobPod(ctx, namespace, name)
	if err != nil {
		e.logger.Warn("no pod found for job logs", logging.Job(name), logging.Err(err))
		return
	}
	logs, err := e.client.GetLogs(ctx, namespace, pod.Name, ContainerName, k8s.LogOptions{})
	if err != nil {
		e.logger.Warn("failed to retrieve job logs",
			logging.Pod(pod.Name), logging.Container(ContainerName), logging.Err(err))
		return
	}
	defer logs.Close()
	_, _ = io.Copy(e.stdout, logs)
}

// prepareCommand builds the in-container command for a job run, anchoring it
// in the shared-mount directory mapped from the caller's cwd.
func (e *Executor) prepareCommand(target string) ([]string, error) {
	cwd, err := e.getwd()
	if err != nil {
		cwd = ""
	}
	entry := entryDir(cwd)

	if IsScriptFile(target) {
		content, err := ReadScript(target)
		if err != nil {
			return nil, err
		}
		return scriptCommand(filepath.Base(target), content, entry), nil
	}
	return shellCommand(target, entry), nil
}

func statusString(succeeded bool) string {
	if succeeded {
		return logging.StatusSuccess
	}
	return logging.StatusError
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
