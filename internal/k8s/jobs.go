package k8s

import (
	"context"
	"fmt"
	"time"

	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/wait"
)

// jobPodPollInterval is how often WaitForJobPod re-checks for the job's pod.
const jobPodPollInterval = 2 * time.Second

// JobManager implementation

// CreateJob submits the given Job to the cluster.
func (c *kubernetesClient) CreateJob(ctx context.Context, job *batchv1.Job) (*batchv1.Job, error) {
	clientset, err := c.getClientset()
	if err != nil {
		return nil, err
	}

	c.logOperation("create", job.Namespace, "job", job.Name)

	created, err := clientset.BatchV1().Jobs(job.Namespace).Create(ctx, job, metav1.CreateOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to create job %s/%s: %w", job.Namespace, job.Name, err)
	}

	return created, nil
}

// GetJob retrieves a job by name.
func (c *kubernetesClient) GetJob(ctx context.Context, namespace, name string) (*batchv1.Job, error) {
	clientset, err := c.getClientset()
	if err != nil {
		return nil, err
	}

	job, err := clientset.BatchV1().Jobs(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		if apierrors.IsNotFound(err) {
			return nil, fmt.Errorf("job %s/%s: %w", namespace, name, ErrJobNotFound)
		}
		return nil, fmt.Errorf("failed to get job %s/%s: %w", namespace, name, err)
	}

	return job, nil
}

// ListJobs lists jobs, optionally filtered by label selector.
func (c *kubernetesClient) ListJobs(ctx context.Context, namespace string, opts ListOptions) ([]batchv1.Job, error) {
	clientset, err := c.getClientset()
	if err != nil {
		return nil, err
	}

	c.logOperation("list", namespace, "job", "")

	jobs, err := clientset.BatchV1().Jobs(namespace).List(ctx, metav1.ListOptions{
		LabelSelector: opts.LabelSelector,
		FieldSelector: opts.FieldSelector,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs in %s: %w", namespace, err)
	}

	return jobs.Items, nil
}

// WaitForJob blocks until the job reaches a Complete or Failed condition.
func (c *kubernetesClient) WaitForJob(ctx context.Context, namespace, name string) (bool, error) {
	clientset, err := c.getClientset()
	if err != nil {
		return false, err
	}

	// Check the current status first so jobs that finished before the
	// watch was established are handled.
	job, err := c.GetJob(ctx, namespace, name)
	if err != nil {
		return false, err
	}
	if done, succeeded := jobFinished(job); done {
		return succeeded, nil
	}

	watcher, err := clientset.BatchV1().Jobs(namespace).Watch(ctx, metav1.ListOptions{
		FieldSelector:   "metadata.name=" + name,
		ResourceVersion: job.ResourceVersion,
	})
	if err != nil {
		return false, fmt.Errorf("failed to watch job %s/%s: %w", namespace, name, err)
	}
	defer watcher.Stop()

	for {
		select {
		case event, ok := <-watcher.ResultChan():
			if !ok {
				return false, fmt.Errorf("job %s/%s: %w", namespace, name, ErrWatchClosed)
			}
			updated, ok := event.Object.(*batchv1.Job)
			if !ok || updated.Name != name {
				continue
			}
			if done, succeeded := jobFinished(updated); done {
				return succeeded, nil
			}
		case <-ctx.Done():
			return false, fmt.Errorf("waiting for job %s/%s: %w", namespace, name, ctx.Err())
		}
	}
}

// jobFinished reports whether the job has reached a terminal condition and,
// if so, whether it succeeded.
func jobFinished(job *batchv1.Job) (done, succeeded bool) {
	for _, condition := range job.Status.Conditions {
		if condition.Status != corev1.ConditionTrue {
			continue
		}
		switch condition.Type {
		case batchv1.JobComplete:
			return true, true
		case batchv1.JobFailed:
			return true, false
		}
	}
	return false, false
}

// JobPod returns the pod created for the job.
func (c *kubernetesClient) JobPod(ctx context.Context, namespace, jobName string) (*corev1.Pod, error) {
	pods, err := c.ListPods(ctx, namespace, ListOptions{LabelSelector: "job-name=" + jobName})
	if err != nil {
		return nil, err
	}
	if len(pods) == 0 {
		return nil, fmt.Errorf("no pod for job %s/%s: %w", namespace, jobName, ErrPodNotFound)
	}
	return &pods[0], nil
}

// WaitForJobPod blocks until the pod created for the job exists and is past
// the Pending phase.
func (c *kubernetesClient) WaitForJobPod(ctx context.Context, namespace, jobName string) (*corev1.Pod, error) {
	var pod *corev1.Pod

	err := wait.PollUntilContextCancel(ctx, jobPodPollInterval, true, func(ctx context.Context) (bool, error) {
		pods, err := c.ListPods(ctx, namespace, ListOptions{LabelSelector: "job-name=" + jobName})
		if err != nil {
			return false, err
		}
		for i := range pods {
			if pods[i].Status.Phase != corev1.PodPending {
				pod = &pods[i]
				return true, nil
			}
		}
		return false, nil
	})
	if err != nil {
		return nil, fmt.Errorf("waiting for pod of job %s/%s: %w", namespace, jobName, err)
	}

	return pod, nil
}

// DeleteJob deletes the job with foreground propagation.
func (c *kubernetesClient) DeleteJob(ctx context.Context, namespace, name string) error {
	clientset, err := c.getClientset()
	if err != nil {
		return err
	}

	c.logOperation("delete", namespace, "job", name)

	propagation := metav1.DeletePropagationForeground
	err = clientset.BatchV1().Jobs(namespace).Delete(ctx, name, metav1.DeleteOptions{
		PropagationPolicy: &propagation,
	})
	if err != nil {
		if apierrors.IsNotFound(err) {
			return fmt.Errorf("job %s/%s: %w", namespace, name, ErrJobNotFound)
		}
		return fmt.Errorf("failed to delete job %s/%s: %w", namespace, name, err)
	}

	return nil
}

// CleanupJobs deletes jobs matching the selector older than the cutoff.
func (c *kubernetesClient) CleanupJobs(ctx context.Context, namespace, labelSelector string, olderThan time.Duration) (int, error) {
	jobs, err := c.ListJobs(ctx, namespace, ListOptions{LabelSelector: labelSelector})
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().Add(-olderThan)
	cleaned := 0
	for _, job := range jobs {
		if !job.CreationTimestamp.Time.Before(cutoff) {
			continue
		}
		if err := c.DeleteJob(ctx, namespace, job.Name); err != nil {
			return cleaned, err
		}
		cleaned++
	}

	return cleaned, nil
}
