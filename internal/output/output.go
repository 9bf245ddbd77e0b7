package output

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	corev1 "k8s.io/api/core/v1"

	"github.com/kubexec/kubexec/internal/executor"
)

// ANSI color sequences used for status cells.
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
)

// Options control table rendering.
type Options struct {
	// Wide adds the NODE and IMAGE columns to pod tables.
	Wide bool
	// Color enables ANSI coloring of status cells.
	Color bool
	// Now overrides the reference time for age computation. Zero means
	// time.Now.
	Now time.Time
}

func (o Options) now() time.Time {
	if o.Now.IsZero() {
		return time.Now()
	}
	return o.Now
}

// PodTable writes an aligned table of pods to w.
func PodTable(w io.Writer, pods []corev1.Pod, opts Options) error {
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)

	if opts.Wide {
		fmt.Fprintln(tw, "NAME\tSTATUS\tRESTARTS\tAGE\tNODE\tIMAGE")
	} else {
		fmt.Fprintln(tw, "NAME\tSTATUS\tRESTARTS\tAGE")
	}

	for _, pod := range pods {
		status := PodStatus(&pod)
		restarts := podRestarts(&pod)
		statusCell := colorize(status, statusColor(status, restarts), opts.Color)
		age := FormatAge(opts.now().Sub(pod.CreationTimestamp.Time))

		if opts.Wide {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
				pod.Name, statusCell, restartsCell(restarts, opts.Color), age,
				pod.Spec.NodeName, podImage(&pod))
		} else {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
				pod.Name, statusCell, restartsCell(restarts, opts.Color), age)
		}
	}

	return tw.Flush()
}

// JobTable writes an aligned table of kubexec jobs to w.
func JobTable(w io.Writer, jobs []executor.JobInfo, opts Options) error {
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)

	fmt.Fprintln(tw, "NAME\tSTATUS\tIMAGE\tAGE")
	for _, job := range jobs {
		age := FormatAge(opts.now().Sub(job.Created))
		statusCell := colorize(job.Status, statusColor(job.Status, 0), opts.Color)
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			job.Name, statusCell, job.Image, age)
	}

	return tw.Flush()
}

// PodStatus reports the status to display for a pod. A waiting container's
// reason (such as CrashLoopBackOff) is more useful than the generic phase, so
// it wins when present.
func PodStatus(pod *corev1.Pod) string {
	if pod.DeletionTimestamp != nil {
		return "Terminating"
	}
	for _, cs := range pod.Status.ContainerStatuses {
		if cs.State.Waiting != nil && cs.State.Waiting.Reason != "" {
			return cs.State.Waiting.Reason
		}
		if cs.State.Terminated != nil && cs.State.Terminated.Reason != "" &&
			pod.Status.Phase != corev1.PodSucceeded {
			return cs.State.Terminated.Reason
		}
	}
	return string(pod.Status.Phase)
}

// FormatAge renders a duration the way kubectl does: the two most significant
// units, seconds only under a minute.
func FormatAge(d time.Duration) string {
	if d < 0 {
		d = 0
	}

	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		h := int(d.Hours())
		m := int(d.Minutes()) % 60
		if m == 0 {
			return fmt.Sprintf("%dh", h)
		}
		return fmt.Sprintf("%dh%dm", h, m)
	default:
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		if h == 0 {
			return fmt.Sprintf("%dd", days)
		}
		return fmt.Sprintf("%dd%dh", days, h)
	}
}

func podRestarts(pod *corev1.Pod) int {
	restarts := 0
	for _, cs := range pod.Status.ContainerStatuses {
		restarts += int(cs.RestartCount)
	}
	return restarts
}

func podImage(pod *corev1.Pod) string {
	containers := pod.Spec.Containers
	if len(containers) == 0 {
		return ""
	}
	images := make([]string, 0, len(containers))
	for _, c := range containers {
		images = append(images, c.Image)
	}
	return strings.Join(images, ",")
}

// statusColor picks the ANSI color for a status cell. A running pod that has
// restarted is suspect, so it renders yellow instead of green.
func statusColor(status string, restarts int) string {
	switch status {
	case "Running":
		if restarts > 0 {
			return colorYellow
		}
		return colorGreen
	case "Succeeded":
		return colorBlue
	case "Completed", executor.JobStatusCompleted:
		return colorGreen
	case "Failed", "Error", "CrashLoopBackOff", "ImagePullBackOff", "ErrImagePull", executor.JobStatusFailed:
		return colorRed
	case "Pending", "Terminating", "ContainerCreating", executor.JobStatusRunning:
		return colorYellow
	default:
		return ""
	}
}

// restartsCell renders the restart count, red when the pod has restarted.
func restartsCell(restarts int, color bool) string {
	cell := strconv.Itoa(restarts)
	if restarts > 0 {
		return colorize(cell, colorRed, color)
	}
	return colorize(cell, colorGreen, color)
}

func colorize(text, color string, enabled bool) string {
	if !enabled || color == "" {
		return text
	}
	return color + text + colorReset
}
