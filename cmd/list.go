package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	corev1 "k8s.io/api/core/v1"

	"github.com/kubexec/kubexec/internal/executor"
	"github.com/kubexec/kubexec/internal/k8s"
	"github.com/kubexec/kubexec/internal/output"
)

// watchInterval is the refresh period for list --watch.
const watchInterval = 5 * time.Second

// clearScreen is the ANSI sequence used between --watch refreshes.
const clearScreen = "\033[2J\033[H"

type listOptions struct {
	all     bool
	running bool
	kubexec bool
	watch   bool
}

func newListCmd() *cobra.Command {
	var opts listOptions

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List pods in the current namespace",
		Long: `list prints the pods of the target namespace as a table with their
status, restart count and age. With --all the node and image columns are
included. --watch re-renders the table every few seconds until interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newK8sClient(newLogger())
			if err != nil {
				return fmt.Errorf("failed to create kubernetes client: %w", err)
			}
			return runList(cmd, client, opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.all, "all", "a", false, "include node and image columns")
	cmd.Flags().BoolVar(&opts.running, "running", false, "only show running pods")
	cmd.Flags().BoolVar(&opts.kubexec, "kubexec", false, "only show pods created by kubexec")
	cmd.Flags().BoolVar(&opts.watch, "watch", false, "refresh the table every few seconds")

	return cmd
}

func runList(cmd *cobra.Command, client k8s.Client, opts listOptions) error {
	namespace := rootOpts.namespace
	if namespace == "" {
		namespace = client.CurrentNamespace()
	}

	render := func() error {
		pods, err := listPods(cmd, client, namespace, opts)
		if err != nil {
			return err
		}
		return output.PodTable(cmd.OutOrStdout(), pods, output.Options{
			Wide:  opts.all,
			Color: stdoutIsTerminal(),
		})
	}

	if !opts.watch {
		return render()
	}

	ticker := time.NewTicker(watchInterval)
	defer ticker.Stop()

	for {
		fmt.Fprint(cmd.OutOrStdout(), clearScreen)
		if err := render(); err != nil {
			return err
		}
		select {
		case <-cmd.Context().Done():
			return nil
		case <-ticker.C:
		}
	}
}

func listPods(cmd *cobra.Command, client k8s.Client, namespace string, opts listOptions) ([]corev1.Pod, error) {
	listOpts := k8s.ListOptions{}
	if opts.kubexec {
		listOpts.LabelSelector = executor.LabelApp
	}

	pods, err := client.ListPods(cmd.Context(), namespace, listOpts)
	if err != nil {
		return nil, err
	}

	if opts.running {
		pods = filterRunning(pods)
	}
	return pods, nil
}

func filterRunning(pods []corev1.Pod) []corev1.Pod {
	running := pods[:0]
	for _, pod := range pods {
		if pod.Status.Phase == corev1.PodRunning {
			running = append(running, pod)
		}
	}
	return running
}

func stdoutIsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}
