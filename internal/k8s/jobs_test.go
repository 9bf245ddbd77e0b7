package k8s

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

func testJob(name string, conditions ...batchv1.JobCondition) *batchv1.Job {
	return &batchv1.Job{
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: "default",
			Labels:    map[string]string{"app": "kubexec"},
		},
		Status: batchv1.JobStatus{Conditions: conditions},
	}
}

func completeCondition() batchv1.JobCondition {
	return batchv1.JobCondition{Type: batchv1.JobComplete, Status: corev1.ConditionTrue}
}

func failedCondition() batchv1.JobCondition {
	return batchv1.JobCondition{Type: batchv1.JobFailed, Status: corev1.ConditionTrue}
}

func TestCreateJob(t *testing.T) {
	client := newTestClient()

	created, err := client.CreateJob(t.Context(), testJob("kubexec-job-1"))
	require.NoError(t, err)
	assert.Equal(t, "kubexec-job-1", created.Name)

	// Creating the same job again conflicts.
	_, err = client.CreateJob(t.Context(), testJob("kubexec-job-1"))
	assert.Error(t, err)
}

func TestGetJob(t *testing.T) {
	client := newTestClient(testJob("kubexec-job-1"))

	job, err := client.GetJob(t.Context(), "default", "kubexec-job-1")
	require.NoError(t, err)
	assert.Equal(t, "kubexec-job-1", job.Name)

	_, err = client.GetJob(t.Context(), "default", "missing")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestListJobs(t *testing.T) {
	unlabeled := &batchv1.Job{
		ObjectMeta: metav1.ObjectMeta{Name: "cron-backup", Namespace: "default"},
	}
	client := newTestClient(testJob("kubexec-job-1"), testJob("kubexec-job-2"), unlabeled)

	jobs, err := client.ListJobs(t.Context(), "default", ListOptions{LabelSelector: "app=kubexec"})
	require.NoError(t, err)
	assert.Len(t, jobs, 2)

	all, err := client.ListJobs(t.Context(), "default", ListOptions{})
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestJobFinished(t *testing.T) {
	t.Run("running", func(t *testing.T) {
		done, _ := jobFinished(testJob("j"))
		assert.False(t, done)
	})

	t.Run("complete", func(t *testing.T) {
		done, succeeded := jobFinished(testJob("j", completeCondition()))
		assert.True(t, done)
		assert.True(t, succeeded)
	})

	t.Run("failed", func(t *testing.T) {
		done, succeeded := jobFinished(testJob("j", failedCondition()))
		assert.True(t, done)
		assert.False(t, succeeded)
	})

	t.Run("condition not true", func(t *testing.T) {
		job := testJob("j", batchv1.JobCondition{Type: batchv1.JobComplete, Status: corev1.ConditionFalse})
		done, _ := jobFinished(job)
		assert.False(t, done)
	})
}

func TestWaitForJob(t *testing.T) {
	t.Run("already complete", func(t *testing.T) {
		client := newTestClient(testJob("kubexec-job-1", completeCondition()))

		succeeded, err := client.WaitForJob(t.Context(), "default", "kubexec-job-1")
		require.NoError(t, err)
		assert.True(t, succeeded)
	})

	t.Run("already failed", func(t *testing.T) {
		client := newTestClient(testJob("kubexec-job-1", failedCondition()))

		succeeded, err := client.WaitForJob(t.Context(), "default", "kubexec-job-1")
		require.NoError(t, err)
		assert.False(t, succeeded)
	})

	t.Run("missing job", func(t *testing.T) {
		client := newTestClient()
		_, err := client.WaitForJob(t.Context(), "default", "missing")
		assert.ErrorIs(t, err, ErrJobNotFound)
	})

	t.Run("completes while watching", func(t *testing.T) {
		client := newTestClient(testJob("kubexec-job-1"))

		go func() {
			time.Sleep(50 * time.Millisecond)
			job := testJob("kubexec-job-1", completeCondition())
			_, err := client.clientset.BatchV1().Jobs("default").Update(context.Background(), job, metav1.UpdateOptions{})
			assert.NoError(t, err)
		}()

		ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
		defer cancel()

		succeeded, err := client.WaitForJob(ctx, "default", "kubexec-job-1")
		require.NoError(t, err)
		assert.True(t, succeeded)
	})

	t.Run("context cancelled", func(t *testing.T) {
		client := newTestClient(testJob("kubexec-job-1"))

		ctx, cancel := context.WithTimeout(t.Context(), 100*time.Millisecond)
		defer cancel()

		_, err := client.WaitForJob(ctx, "default", "kubexec-job-1")
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestJobPod(t *testing.T) {
	jobPod := &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{
			Name:      "kubexec-job-1-abcde",
			Namespace: "default",
			Labels:    map[string]string{"job-name": "kubexec-job-1"},
		},
		Status: corev1.PodStatus{Phase: corev1.PodRunning},
	}

	t.Run("found", func(t *testing.T) {
		client := newTestClient(jobPod)
		pod, err := client.JobPod(t.Context(), "default", "kubexec-job-1")
		require.NoError(t, err)
		assert.Equal(t, "kubexec-job-1-abcde", pod.Name)
	})

	t.Run("not found", func(t *testing.T) {
		client := newTestClient()
		_, err := client.JobPod(t.Context(), "default", "kubexec-job-1")
		assert.ErrorIs(t, err, ErrPodNotFound)
	})
}

func TestWaitForJobPod(t *testing.T) {
	t.Run("pod already running", func(t *testing.T) {
		pod := &corev1.Pod{
			ObjectMeta: metav1.ObjectMeta{
				Name:      "kubexec-job-1-abcde",
				Namespace: "default",
				Labels:    map[string]string{"job-name": "kubexec-job-1"},
			},
			Status: corev1.PodStatus{Phase: corev1.PodRunning},
		}
		client := newTestClient(pod)

		got, err := client.WaitForJobPod(t.Context(), "default", "kubexec-job-1")
		require.NoError(t, err)
		assert.Equal(t, "kubexec-job-1-abcde", got.Name)
	})

	t.Run("pod stays pending until timeout", func(t *testing.T) {
		pod := &corev1.Pod{
			ObjectMeta: metav1.ObjectMeta{
				Name:      "kubexec-job-1-abcde",
				Namespace: "default",
				Labels:    map[string]string{"job-name": "kubexec-job-1"},
			},
			Status: corev1.PodStatus{Phase: corev1.PodPending},
		}
		client := newTestClient(pod)

		ctx, cancel := context.WithTimeout(t.Context(), 100*time.Millisecond)
		defer cancel()

		_, err := client.WaitForJobPod(ctx, "default", "kubexec-job-1")
		assert.Error(t, err)
	})
}

func TestDeleteJob(t *testing.T) {
	t.Run("existing job", func(t *testing.T) {
		client := newTestClient(testJob("kubexec-job-1"))

		require.NoError(t, client.DeleteJob(t.Context(), "default", "kubexec-job-1"))

		_, err := client.GetJob(t.Context(), "default", "kubexec-job-1")
		assert.ErrorIs(t, err, ErrJobNotFound)
	})

	t.Run("missing job", func(t *testing.T) {
		client := newTestClient()
		err := client.DeleteJob(t.Context(), "default", "missing")
		assert.ErrorIs(t, err, ErrJobNotFound)
	})
}

func TestCleanupJobs(t *testing.T) {
	old := testJob("kubexec-job-old")
	old.CreationTimestamp = metav1.NewTime(time.Now().Add(-48 * time.Hour))

	recent := testJob("kubexec-job-recent")
	recent.CreationTimestamp = metav1.NewTime(time.Now().Add(-1 * time.Hour))

	client := newTestClient(old, recent)

	cleaned, err := client.CleanupJobs(t.Context(), "default", "app=kubexec", 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, cleaned)

	_, err = client.GetJob(t.Context(), "default", "kubexec-job-old")
	assert.ErrorIs(t, err, ErrJobNotFound)

	_, err = client.GetJob(t.Context(), "default", "kubexec-job-recent")
	assert.NoError(t, err)
}
