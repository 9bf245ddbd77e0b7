package k8s

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/kubernetes/fake"
	clientcmdapi "k8s.io/client-go/tools/clientcmd/api"
)

// newTestClient builds a kubernetesClient backed by a fake clientset seeded
// with the given objects.
func newTestClient(objects ...runtime.Object) *kubernetesClient {
	return &kubernetesClient{
		config: &ClientConfig{
			Logger: slog.New(slog.DiscardHandler),
		},
		clientset:      fake.NewSimpleClientset(objects...),
		currentContext: "test-context",
		timeout:        DefaultTimeout * time.Second,
		namespacePath:  DefaultNamespacePath,
	}
}

func TestNewClient(t *testing.T) {
	t.Run("nil config", func(t *testing.T) {
		_, err := NewClient(nil)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "configuration is required")
	})

	t.Run("unknown context", func(t *testing.T) {
		kubeconfig := writeTestKubeconfig(t)
		_, err := NewClient(&ClientConfig{
			KubeconfigPath: kubeconfig,
			Context:        "does-not-exist",
		})
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "does not exist in kubeconfig")
	})

	t.Run("explicit context", func(t *testing.T) {
		kubeconfig := writeTestKubeconfig(t)
		client, err := NewClient(&ClientConfig{
			KubeconfigPath: kubeconfig,
			Context:        "other-context",
		})
		require.NoError(t, err)
		assert.Equal(t, "other-context", client.CurrentContext())
	})

	t.Run("defaults applied", func(t *testing.T) {
		kubeconfig := writeTestKubeconfig(t)
		client, err := NewClient(&ClientConfig{KubeconfigPath: kubeconfig})
		require.NoError(t, err)

		impl, ok := client.(*kubernetesClient)
		require.True(t, ok)
		assert.Equal(t, float32(DefaultQPSLimit), impl.qpsLimit)
		assert.Equal(t, DefaultBurstLimit, impl.burstLimit)
		assert.Equal(t, DefaultTimeout*time.Second, impl.timeout)
	})
}

// writeTestKubeconfig writes a minimal two-context kubeconfig and returns its path.
func writeTestKubeconfig(t *testing.T) string {
	t.Helper()

	const kubeconfig = `apiVersion: v1
kind: Config
current-context: test-context
clusters:
- name: test-cluster
  cluster:
    server: https://127.0.0.1:6443
contexts:
- name: test-context
  context:
    cluster: test-cluster
    user: test-user
    namespace: team-ns
- name: other-context
  context:
    cluster: test-cluster
    user: test-user
users:
- name: test-user
  user:
    token: fake-token
`

	path := filepath.Join(t.TempDir(), "kubeconfig")
	require.NoError(t, os.WriteFile(path, []byte(kubeconfig), 0o600))
	return path
}

func TestCurrentNamespace(t *testing.T) {
	t.Run("kubeconfig context namespace", func(t *testing.T) {
		client := newTestClient()
		client.kubeconfigData = &clientcmdapi.Config{
			Contexts: map[string]*clientcmdapi.Context{
				"test-context": {Namespace: "team-ns"},
			},
		}
		assert.Equal(t, "team-ns", client.CurrentNamespace())
	})

	t.Run("kubeconfig context without namespace", func(t *testing.T) {
		client := newTestClient()
		client.kubeconfigData = &clientcmdapi.Config{
			Contexts: map[string]*clientcmdapi.Context{
				"test-context": {},
			},
		}
		assert.Equal(t, DefaultNamespace, client.CurrentNamespace())
	})

	t.Run("in-cluster namespace file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "namespace")
		require.NoError(t, os.WriteFile(path, []byte("notebook-ns\n"), 0o600))

		client := newTestClient()
		client.currentContext = InClusterContext
		client.namespacePath = path

		assert.Equal(t, "notebook-ns", client.CurrentNamespace())
	})

	t.Run("in-cluster namespace file missing", func(t *testing.T) {
		client := newTestClient()
		client.currentContext = InClusterContext
		client.namespacePath = filepath.Join(t.TempDir(), "missing")

		assert.Equal(t, DefaultNamespace, client.CurrentNamespace())
	})
}

func TestPodExitCode(t *testing.T) {
	terminated := func(name string, code int32) corev1.ContainerStatus {
		return corev1.ContainerStatus{
			Name: name,
			State: corev1.ContainerState{
				Terminated: &corev1.ContainerStateTerminated{ExitCode: code},
			},
		}
	}

	t.Run("nil pod", func(t *testing.T) {
		code, ok := PodExitCode(nil, "")
		assert.False(t, ok)
		assert.Equal(t, 0, code)
	})

	t.Run("first container when name empty", func(t *testing.T) {
		pod := &corev1.Pod{
			Status: corev1.PodStatus{
				ContainerStatuses: []corev1.ContainerStatus{terminated("main", 42)},
			},
		}
		code, ok := PodExitCode(pod, "")
		assert.True(t, ok)
		assert.Equal(t, 42, code)
	})

	t.Run("named container", func(t *testing.T) {
		pod := &corev1.Pod{
			Status: corev1.PodStatus{
				ContainerStatuses: []corev1.ContainerStatus{
					terminated("sidecar", 1),
					terminated("kubexec-container", 7),
				},
			},
		}
		code, ok := PodExitCode(pod, "kubexec-container")
		assert.True(t, ok)
		assert.Equal(t, 7, code)
	})

	t.Run("still running", func(t *testing.T) {
		pod := &corev1.Pod{
			Status: corev1.PodStatus{
				ContainerStatuses: []corev1.ContainerStatus{
					{Name: "main", State: corev1.ContainerState{Running: &corev1.ContainerStateRunning{}}},
				},
			},
		}
		_, ok := PodExitCode(pod, "main")
		assert.False(t, ok)
	})
}

func TestPodOperations(t *testing.T) {
	runningPod := &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{
			Name:      "worker-0",
			Namespace: "default",
			Labels:    map[string]string{"app": "kubexec"},
		},
		Status: corev1.PodStatus{Phase: corev1.PodRunning},
	}

	t.Run("GetPod found", func(t *testing.T) {
		client := newTestClient(runningPod)
		pod, err := client.GetPod(t.Context(), "default", "worker-0")
		require.NoError(t, err)
		assert.Equal(t, "worker-0", pod.Name)
	})

	t.Run("GetPod not found", func(t *testing.T) {
		client := newTestClient()
		_, err := client.GetPod(t.Context(), "default", "missing")
		assert.ErrorIs(t, err, ErrPodNotFound)
	})

	t.Run("PodExists", func(t *testing.T) {
		client := newTestClient(runningPod)

		exists, err := client.PodExists(t.Context(), "default", "worker-0")
		require.NoError(t, err)
		assert.True(t, exists)

		exists, err = client.PodExists(t.Context(), "default", "missing")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("ListPods with selector", func(t *testing.T) {
		other := &corev1.Pod{
			ObjectMeta: metav1.ObjectMeta{Name: "other", Namespace: "default"},
		}
		client := newTestClient(runningPod, other)

		pods, err := client.ListPods(t.Context(), "default", ListOptions{LabelSelector: "app=kubexec"})
		require.NoError(t, err)
		require.Len(t, pods, 1)
		assert.Equal(t, "worker-0", pods[0].Name)
	})
}
