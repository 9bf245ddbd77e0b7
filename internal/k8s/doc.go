// Package k8s provides interfaces and types for the Kubernetes operations
// kubexec needs.
//
// The core Client interface abstracts everything the executor touches on a
// cluster, broken down into focused concerns:
//
//   - ContextManager: kubeconfig context and namespace resolution
//   - PodManager: pod lookup, exec and log streaming
//   - JobManager: one-shot Job lifecycle (create, wait, logs, delete)
//
// All blocking operations accept a context.Context. The concrete
// implementation is backed by client-go and supports both kubeconfig and
// in-cluster service-account authentication; tests inject a fake clientset
// through the same interface.
//
// Example usage:
//
//	client, err := k8s.NewClient(&k8s.ClientConfig{Context: "prod", Logger: logger})
//	if err != nil {
//		return err
//	}
//
//	result, err := client.Exec(ctx, "default", "my-pod", "",
//		[]string{"/bin/bash", "-c", "hostname"},
//		k8s.ExecOptions{Stdout: os.Stdout, Stderr: os.Stderr})
package k8s
