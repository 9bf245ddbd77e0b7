package k8s

import (
	"context"
	"errors"
	"io"
	"time"

	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
)

// Sentinel errors returned by client operations.
var (
	// ErrPodNotFound is returned when a referenced pod does not exist.
	ErrPodNotFound = errors.New("pod not found")
	// ErrJobNotFound is returned when a referenced job does not exist.
	ErrJobNotFound = errors.New("job not found")
	// ErrWatchClosed is returned when a watch channel closes before the
	// awaited condition is observed.
	ErrWatchClosed = errors.New("watch channel closed")
)

// Client defines the interface for Kubernetes operations used by kubexec.
type Client interface {
	// Context Operations
	ContextManager

	// Pod Operations
	PodManager

	// Job Operations
	JobManager
}

// ContextManager resolves kubeconfig context information.
type ContextManager interface {
	// CurrentContext returns the name of the active context
	// ("in-cluster" when running with service-account authentication).
	CurrentContext() string

	// CurrentNamespace returns the namespace the client defaults to: the
	// service-account namespace in-cluster, otherwise the kubeconfig
	// context's namespace, falling back to "default".
	CurrentNamespace() string
}

// PodManager handles pod-specific operations.
type PodManager interface {
	// GetPod retrieves a pod by name.
	GetPod(ctx context.Context, namespace, name string) (*corev1.Pod, error)

	// PodExists reports whether the named pod exists.
	PodExists(ctx context.Context, namespace, name string) (bool, error)

	// ListPods lists pods, optionally filtered by label selector.
	ListPods(ctx context.Context, namespace string, opts ListOptions) ([]corev1.Pod, error)

	// Exec executes a command inside a pod container and streams its stdio.
	// A non-zero remote exit status is not an error; it is reported through
	// the returned ExecResult.
	Exec(ctx context.Context, namespace, podName, containerName string, command []string, opts ExecOptions) (*ExecResult, error)

	// GetLogs retrieves logs from a pod container.
	GetLogs(ctx context.Context, namespace, podName, containerName string, opts LogOptions) (io.ReadCloser, error)
}

// JobManager handles the lifecycle of one-shot Jobs.
type JobManager interface {
	// CreateJob submits the given Job to the cluster.
	CreateJob(ctx context.Context, job *batchv1.Job) (*batchv1.Job, error)

	// GetJob retrieves a job by name.
	GetJob(ctx context.Context, namespace, name string) (*batchv1.Job, error)

	// ListJobs lists jobs, optionally filtered by label selector.
	ListJobs(ctx context.Context, namespace string, opts ListOptions) ([]batchv1.Job, error)

	// WaitForJob blocks until the job reaches a Complete or Failed
	// condition, the context is cancelled, or the watch breaks. It reports
	// whether the job completed successfully.
	WaitForJob(ctx context.Context, namespace, name string) (bool, error)

	// WaitForJobPod blocks until the pod created for the job is scheduled
	// and past the Pending phase, then returns it.
	WaitForJobPod(ctx context.Context, namespace, jobName string) (*corev1.Pod, error)

	// JobPod returns the pod created for the job, matched by the
	// "job-name" label the Job controller applies.
	JobPod(ctx context.Context, namespace, jobName string) (*corev1.Pod, error)

	// DeleteJob deletes the job with foreground propagation so dependent
	// pods are removed with it.
	DeleteJob(ctx context.Context, namespace, name string) error

	// CleanupJobs deletes jobs matching the selector whose creation time
	// is older than the cutoff, returning the number deleted.
	CleanupJobs(ctx context.Context, namespace, labelSelector string, olderThan time.Duration) (int, error)
}

// ListOptions provides configuration for list operations.
type ListOptions struct {
	LabelSelector string
	FieldSelector string
}

// ExecOptions configures command execution in pods.
type ExecOptions struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	TTY    bool
}

// ExecResult contains the result of command execution.
type ExecResult struct {
	ExitCode int
}

// LogOptions configures log retrieval.
type LogOptions struct {
	Follow     bool
	Previous   bool
	Timestamps bool
	TailLines  *int64
}

// PodExitCode extracts the exit code of the named container (or the first
// container when name is empty) from a pod's terminated state. The second
// return value reports whether a terminated state was found.
func PodExitCode(pod *corev1.Pod, containerName string) (int, bool) {
	if pod == nil {
		return 0, false
	}
	for _, cs := range pod.Status.ContainerStatuses {
		if containerName != "" && cs.Name != containerName {
			continue
		}
		if cs.State.Terminated != nil {
			return int(cs.State.Terminated.ExitCode), true
		}
	}
	return 0, false
}
