package executor

import (
	"fmt"

	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/kubexec/kubexec/internal/config"
)

const (
	// ContainerName is the name of the container running the target command
	// in every kubexec job pod.
	ContainerName = "kubexec-container"

	// LabelApp marks every resource kubexec creates; list and cleanup
	// operations select on it.
	LabelApp = "app=kubexec"

	appLabelKey   = "app"
	appLabelValue = "kubexec"
)

// JobSpec collects everything needed to materialize a kubexec Job manifest.
type JobSpec struct {
	Name      string
	Namespace string
	Image     string
	Command   []string
	Memory    string
	CPU       string
	Workdir   string

	TTLSecondsAfterFinished      int32
	SecurityContext              *corev1.PodSecurityContext
	NodeSelector                 map[string]string
	AutomountServiceAccountToken bool

	SharedVolumes  []config.SharedVolume
	HostPathMounts []HostPathMount
}

// BuildJob renders the Job manifest for a kubexec invocation. Requests equal
// limits so the scheduler reserves exactly what the command may use.
func BuildJob(spec JobSpec) (*batchv1.Job, error) {
	memory, err := resource.ParseQuantity(spec.Memory)
	if err != nil {
		return nil, fmt.Errorf("invalid memory quantity %q: %w", spec.Memory, err)
	}
	cpu, err := resource.ParseQuantity(spec.CPU)
	if err != nil {
		return nil, fmt.Errorf("invalid cpu quantity %q: %w", spec.CPU, err)
	}

	resources := corev1.ResourceList{
		corev1.ResourceMemory: memory,
		corev1.ResourceCPU:    cpu,
	}

	volumes, mounts := buildVolumes(spec.SharedVolumes, spec.HostPathMounts)

	container := corev1.Container{
		Name:       ContainerName,
		Image:      spec.Image,
		Command:    spec.Command,
		WorkingDir: spec.Workdir,
		Resources: corev1.ResourceRequirements{
			Limits:   resources,
			Requests: resources,
		},
		VolumeMounts: mounts,
	}

	backoffLimit := int32(0)
	ttl := spec.TTLSecondsAfterFinished
	automount := spec.AutomountServiceAccountToken

	job := &batchv1.Job{
		TypeMeta: metav1.TypeMeta{
			APIVersion: "batch/v1",
			Kind:       "Job",
		},
		ObjectMeta: metav1.ObjectMeta{
			Name:      spec.Name,
			Namespace: spec.Namespace,
			Labels: map[string]string{
				appLabelKey:  appLabelValue,
				"created-by": appLabelValue,
			},
		},
		Spec: batchv1.JobSpec{
			BackoffLimit:            &backoffLimit,
			TTLSecondsAfterFinished: &ttl,
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{
					Labels: map[string]string{
						appLabelKey: appLabelValue,
						"job":       spec.Name,
					},
				},
				Spec: corev1.PodSpec{
					RestartPolicy:                corev1.RestartPolicyNever,
					SecurityContext:              spec.SecurityContext,
					NodeSelector:                 spec.NodeSelector,
					AutomountServiceAccountToken: &automount,
					Containers:                   []corev1.Container{container},
					Volumes:                      volumes,
				},
			},
		},
	}

	return job, nil
}

// buildVolumes translates the configured shared PVC volumes and the parsed
// hostPath mounts into pod volumes and container mounts.
func buildVolumes(shared []config.SharedVolume, hostPaths []HostPathMount) ([]corev1.Volume, []corev1.VolumeMount) {
	var volumes []corev1.Volume
	var mounts []corev1.VolumeMount

	for _, sv := range shared {
		volumes = append(volumes, corev1.Volume{
			Name: sv.Name,
			VolumeSource: corev1.VolumeSource{
				PersistentVolumeClaim: &corev1.PersistentVolumeClaimVolumeSource{
					ClaimName: sv.ClaimName,
					ReadOnly:  sv.ReadOnly,
				},
			},
		})
		mounts = append(mounts, corev1.VolumeMount{
			Name:      sv.Name,
			MountPath: sv.MountPath,
			ReadOnly:  sv.ReadOnly,
		})
	}

	for i, hp := range hostPaths {
		name := fmt.Sprintf("custom-volume-%d", i)
		volumes = append(volumes, corev1.Volume{
			Name: name,
			VolumeSource: corev1.VolumeSource{
				HostPath: &corev1.HostPathVolumeSource{Path: hp.HostPath},
			},
		})
		mounts = append(mounts, corev1.VolumeMount{
			Name:      name,
			MountPath: hp.PodPath,
			ReadOnly:  hp.ReadOnly,
		})
	}

	return volumes, mounts
}
