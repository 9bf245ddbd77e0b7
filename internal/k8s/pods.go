package k8s

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/scheme"
	"k8s.io/client-go/tools/remotecommand"
	utilexec "k8s.io/client-go/util/exec"
)

// PodManager implementation

// GetPod retrieves a pod by name.
func (c *kubernetesClient) GetPod(ctx context.Context, namespace, name string) (*corev1.Pod, error) {
	clientset, err := c.getClientset()
	if err != nil {
		return nil, err
	}

	pod, err := clientset.CoreV1().Pods(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		if apierrors.IsNotFound(err) {
			return nil, fmt.Errorf("pod %s/%s: %w", namespace, name, ErrPodNotFound)
		}
		return nil, fmt.Errorf("failed to get pod %s/%s: %w", namespace, name, err)
	}

	return pod, nil
}

// PodExists reports whether the named pod exists.
func (c *kubernetesClient) PodExists(ctx context.Context, namespace, name string) (bool, error) {
	_, err := c.GetPod(ctx, namespace, name)
	if err != nil {
		if errors.Is(err, ErrPodNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// ListPods lists pods, optionally filtered by label selector.
func (c *kubernetesClient) ListPods(ctx context.Context, namespace string, opts ListOptions) ([]corev1.Pod, error) {
	clientset, err := c.getClientset()
	if err != nil {
		return nil, err
	}

	c.logOperation("list", namespace, "pod", "")

	pods, err := clientset.CoreV1().Pods(namespace).List(ctx, metav1.ListOptions{
		LabelSelector: opts.LabelSelector,
		FieldSelector: opts.FieldSelector,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list pods in %s: %w", namespace, err)
	}

	return pods.Items, nil
}

// Exec executes a command inside a pod container and streams its stdio.
func (c *kubernetesClient) Exec(ctx context.Context, namespace, podName, containerName string, command []string, opts ExecOptions) (*ExecResult, error) {
	clientset, err := c.getClientset()
	if err != nil {
		return nil, err
	}

	restConfig, err := c.getRestConfig()
	if err != nil {
		return nil, err
	}

	c.logOperation("exec", namespace, "pod", podName)

	// Build exec request
	execReq := clientset.CoreV1().RESTClient().Post().
		Resource("pods").
		Name(podName).
		Namespace(namespace).
		SubResource("exec").
		VersionedParams(&corev1.PodExecOptions{
			Container: containerName,
			Command:   command,
			Stdin:     opts.Stdin != nil,
			Stdout:    opts.Stdout != nil,
			Stderr:    opts.Stderr != nil,
			TTY:       opts.TTY,
		}, scheme.ParameterCodec)

	// Create SPDY executor
	exec, err := remotecommand.NewSPDYExecutor(restConfig, http.MethodPost, execReq.URL())
	if err != nil {
		return nil, fmt.Errorf("failed to create executor: %w", err)
	}

	streamOpts := remotecommand.StreamOptions{
		Stdin:  opts.Stdin,
		Stdout: opts.Stdout,
		Stderr: opts.Stderr,
		Tty:    opts.TTY,
	}

	err = exec.StreamWithContext(ctx, streamOpts)
	if err != nil {
		// A non-zero remote exit status comes back as a CodeExitError.
		var exitErr utilexec.CodeExitError
		if errors.As(err, &exitErr) {
			return &ExecResult{ExitCode: exitErr.Code}, nil
		}
		return nil, fmt.Errorf("failed to execute command in pod %s/%s: %w", namespace, podName, err)
	}

	return &ExecResult{ExitCode: 0}, nil
}

// GetLogs retrieves logs from a pod container.
func (c *kubernetesClient) GetLogs(ctx context.Context, namespace, podName, containerName string, opts LogOptions) (io.ReadCloser, error) {
	clientset, err := c.getClientset()
	if err != nil {
		return nil, err
	}

	c.logOperation("get-logs", namespace, "pod", podName)

	logOpts := &corev1.PodLogOptions{
		Container:  containerName,
		Follow:     opts.Follow,
		Previous:   opts.Previous,
		Timestamps: opts.Timestamps,
		TailLines:  opts.TailLines,
	}

	req := clientset.CoreV1().Pods(namespace).GetLogs(podName, logOpts)

	logs, err := req.Stream(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get logs for pod %s/%s: %w", namespace, podName, err)
	}

	return logs, nil
}
