package cmd

import (
	"bytes"
	"context"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/kubexec/kubexec/internal/k8s"
)

// fakeListClient overrides the listing methods; everything else panics via
// the embedded nil interface.
type fakeListClient struct {
	k8s.Client

	pods         []corev1.Pod
	gotSelector  string
	gotNamespace string
}

func (f *fakeListClient) CurrentNamespace() string { return "team-ns" }

func (f *fakeListClient) ListPods(_ context.Context, namespace string, opts k8s.ListOptions) ([]corev1.Pod, error) {
	f.gotNamespace = namespace
	f.gotSelector = opts.LabelSelector
	return f.pods, nil
}

func listTestPods() []corev1.Pod {
	return []corev1.Pod{
		{
			ObjectMeta: metav1.ObjectMeta{Name: "worker-0", CreationTimestamp: metav1.Now()},
			Status:     corev1.PodStatus{Phase: corev1.PodRunning},
		},
		{
			ObjectMeta: metav1.ObjectMeta{Name: "done-1", CreationTimestamp: metav1.Now()},
			Status:     corev1.PodStatus{Phase: corev1.PodSucceeded},
		},
	}
}

func TestListCmdProperties(t *testing.T) {
	cmd := newListCmd()

	assert.Equal(t, "list", cmd.Use)
	for _, name := range []string{"all", "running", "kubexec", "watch"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), "flag %q should exist", name)
	}
	assert.Equal(t, "a", cmd.Flags().Lookup("all").Shorthand)
}

func TestRunList(t *testing.T) {
	newTestCmd := func(t *testing.T) (*cobra.Command, *bytes.Buffer) {
		t.Helper()
		var buf bytes.Buffer
		cmd := newListCmd()
		cmd.SetOut(&buf)
		cmd.SetContext(t.Context())
		return cmd, &buf
	}

	t.Run("renders the pod table", func(t *testing.T) {
		client := &fakeListClient{pods: listTestPods()}
		cmd, buf := newTestCmd(t)

		require.NoError(t, runList(cmd, client, listOptions{}))

		out := buf.String()
		assert.Contains(t, out, "NAME")
		assert.Contains(t, out, "worker-0")
		assert.Contains(t, out, "done-1")
		assert.Equal(t, "team-ns", client.gotNamespace)
		assert.Empty(t, client.gotSelector)
	})

	t.Run("running filter", func(t *testing.T) {
		client := &fakeListClient{pods: listTestPods()}
		cmd, buf := newTestCmd(t)

		require.NoError(t, runList(cmd, client, listOptions{running: true}))

		assert.Contains(t, buf.String(), "worker-0")
		assert.NotContains(t, buf.String(), "done-1")
	})

	t.Run("kubexec filter uses the app label", func(t *testing.T) {
		client := &fakeListClient{}
		cmd, _ := newTestCmd(t)

		require.NoError(t, runList(cmd, client, listOptions{kubexec: true}))

		assert.Equal(t, "app=kubexec", client.gotSelector)
	})
}

func TestFilterRunning(t *testing.T) {
	filtered := filterRunning(listTestPods())

	require.Len(t, filtered, 1)
	assert.Equal(t, "worker-0", filtered[0].Name)
}
