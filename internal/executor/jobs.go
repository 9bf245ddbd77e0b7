package executor

import (
	"context"
	"time"

	batchv1 "k8s.io/api/batch/v1"

	"github.com/kubexec/kubexec/internal/k8s"
)

// JobInfo is a summary row for a kubexec-created job.
type JobInfo struct {
	Name    string
	Status  string
	Image   string
	Created time.Time
}

// Job status strings reported by ListJobs.
const (
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"
	JobStatusRunning   = "running"
)

// ListJobs returns summaries of the kubexec jobs in the namespace.
func (e *Executor) ListJobs(ctx context.Context, namespace string) ([]JobInfo, error) {
	jobs, err := e.client.ListJobs(ctx, namespace, k8s.ListOptions{LabelSelector: LabelApp})
	if err != nil {
		return nil, err
	}

	infos := make([]JobInfo, 0, len(jobs))
	for _, job := range jobs {
		infos = append(infos, JobInfo{
			Name:    job.Name,
			Status:  jobStatus(&job),
			Image:   jobImage(&job),
			Created: job.CreationTimestamp.Time,
		})
	}
	return infos, nil
}

// CleanupOldJobs deletes kubexec jobs older than the given age and returns
// how many were removed.
func (e *Executor) CleanupOldJobs(ctx context.Context, namespace string, olderThan time.Duration) (int, error) {
	return e.client.CleanupJobs(ctx, namespace, LabelApp, olderThan)
}

func jobStatus(job *batchv1.Job) string {
	switch {
	case job.Status.Succeeded > 0:
		return JobStatusCompleted
	case job.Status.Failed > 0:
		return JobStatusFailed
	default:
		return JobStatusRunning
	}
}

func jobImage(job *batchv1.Job) string {
	containers := job.Spec.Template.Spec.Containers
	if len(containers) == 0 {
		return "unknown"
	}
	return containers[0].Image
}
