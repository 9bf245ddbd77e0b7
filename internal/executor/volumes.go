package executor

import (
	"fmt"
	"strconv"
	"strings"
)

// memorySuffixes are the resource quantity suffixes accepted for memory specs.
var memorySuffixes = []string{"Ki", "Mi", "Gi", "Ti", "k", "M", "G", "T", "m"}

// HostPathMount is a parsed host_path:pod_path[:ro] volume specification.
type HostPathMount struct {
	HostPath string
	PodPath  string
	ReadOnly bool
}

// ParseVolumeMount parses a volume mount spec of the form
// host_path:pod_path[:ro].
func ParseVolumeMount(spec string) (HostPathMount, error) {
	parts := strings.Split(spec, ":")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return HostPathMount{}, fmt.Errorf("invalid volume spec %q: expected format host_path:pod_path[:ro]", spec)
	}

	return HostPathMount{
		HostPath: parts[0],
		PodPath:  parts[1],
		ReadOnly: len(parts) > 2 && parts[2] == "ro",
	}, nil
}

// ParseVolumeMounts parses a list of volume mount specs.
func ParseVolumeMounts(specs []string) ([]HostPathMount, error) {
	mounts := make([]HostPathMount, 0, len(specs))
	for _, spec := range specs {
		mount, err := ParseVolumeMount(spec)
		if err != nil {
			return nil, err
		}
		mounts = append(mounts, mount)
	}
	return mounts, nil
}

// ValidateMemory validates a memory resource spec. Bare digits are treated
// as mebibytes for convenience.
func ValidateMemory(spec string) (string, error) {
	if spec == "" {
		return "", fmt.Errorf("memory spec is empty")
	}
	for _, suffix := range memorySuffixes {
		if strings.HasSuffix(spec, suffix) {
			if _, err := strconv.ParseFloat(strings.TrimSuffix(spec, suffix), 64); err == nil {
				return spec, nil
			}
			return "", fmt.Errorf("invalid memory spec %q", spec)
		}
	}
	if _, err := strconv.Atoi(spec); err == nil {
		return spec + "Mi", nil
	}
	return "", fmt.Errorf("invalid memory spec %q", spec)
}

// ValidateCPU validates a CPU resource spec: a plain number or millicores.
func ValidateCPU(spec string) (string, error) {
	if spec == "" {
		return "", fmt.Errorf("cpu spec is empty")
	}
	if _, err := strconv.ParseFloat(spec, 64); err == nil {
		return spec, nil
	}
	if strings.HasSuffix(spec, "m") {
		if _, err := strconv.Atoi(strings.TrimSuffix(spec, "m")); err == nil {
			return spec, nil
		}
	}
	return "", fmt.Errorf("invalid cpu spec %q", spec)
}
