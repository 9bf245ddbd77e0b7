// Package config loads and merges kubexec configuration from its YAML config
// file, an optional dotenv file, and KUBEXEC_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	corev1 "k8s.io/api/core/v1"
	"sigs.k8s.io/yaml"
)

// DefaultConfigFile is the config file name searched for in the config dirs.
const DefaultConfigFile = "config.yaml"

// EnvFile is the optional dotenv file loaded from the config directory.
const EnvFile = "env"

// SharedVolume describes a PVC mounted into every kubexec job pod.
type SharedVolume struct {
	Name      string `json:"name"`
	ClaimName string `json:"claimName"`
	MountPath string `json:"mountPath"`
	ReadOnly  bool   `json:"readOnly,omitempty"`
}

// Config is the merged kubexec configuration. YAML keys follow the Kubernetes
// camelCase convention; KUBEXEC_* environment variables override file values.
type Config struct {
	DockerImage                  string                      `json:"dockerImage" env:"KUBEXEC_DOCKER_IMAGE"`
	Namespace                    string                      `json:"namespace,omitempty" env:"KUBEXEC_NAMESPACE"`
	Memory                       string                      `json:"memory" env:"KUBEXEC_MEMORY"`
	CPU                          string                      `json:"cpu" env:"KUBEXEC_CPU"`
	Workdir                      string                      `json:"workdir" env:"KUBEXEC_WORKDIR"`
	Cleanup                      bool                        `json:"cleanup" env:"KUBEXEC_CLEANUP"`
	Verbose                      bool                        `json:"verbose" env:"KUBEXEC_VERBOSE"`
	TimeoutSeconds               int                         `json:"timeout" env:"KUBEXEC_TIMEOUT"`
	TTLSecondsAfterFinished      int32                       `json:"ttlSecondsAfterFinished"`
	SecurityContext              *corev1.PodSecurityContext  `json:"securityContext,omitempty"`
	NodeSelector                 map[string]string           `json:"nodeSelector,omitempty"`
	SharedVolumes                []SharedVolume              `json:"sharedVolumes,omitempty"`
	AutomountServiceAccountToken bool                        `json:"automountServiceAccountToken"`
}

// Timeout returns the configured execution timeout as a duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Default returns the built-in configuration defaults.
func Default() *Config {
	fsGroup := int64(1000)
	runAsUser := int64(1000)
	runAsGroup := int64(1000)
	fsGroupChangePolicy := corev1.FSGroupChangeOnRootMismatch

	return &Config{
		DockerImage:             "ubuntu:latest",
		Memory:                  "1Gi",
		CPU:                     "1",
		Workdir:                 "/tmp",
		Cleanup:                 true,
		TimeoutSeconds:          3600,
		TTLSecondsAfterFinished: 60,
		SecurityContext: &corev1.PodSecurityContext{
			FSGroup:             &fsGroup,
			RunAsUser:           &runAsUser,
			RunAsGroup:          &runAsGroup,
			FSGroupChangePolicy: &fsGroupChangePolicy,
		},
		NodeSelector: map[string]string{
			"hub.jupyter.org/node-purpose": "user",
		},
		SharedVolumes: []SharedVolume{
			{Name: "shared-team-volume", ClaimName: "cephfs-shared-team", MountPath: "/shared/team"},
			{Name: "shared-public-volume", ClaimName: "cephfs-shared-ro-public", MountPath: "/shared/public", ReadOnly: true},
		},
		AutomountServiceAccountToken: false,
	}
}

// ConfigDirs returns the config directory search order: the shared team
// location, the user config dir, and a world-writable fallback.
func ConfigDirs() []string {
	user := os.Getenv("USER")
	if user == "" {
		user = "default"
	}

	home, err := os.UserHomeDir()
	if err != nil {
		home = "/tmp"
	}

	return []string{
		filepath.Join("/shared/team/kubexec", user),
		filepath.Join(home, ".config", "kubexec"),
		"/tmp/kubexec",
	}
}

// findConfigFile returns the first existing config file in the search dirs,
// or the preferred default location when none exists yet.
func findConfigFile() string {
	dirs := ConfigDirs()
	for _, dir := range dirs {
		path := filepath.Join(dir, DefaultConfigFile)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return filepath.Join(dirs[0], DefaultConfigFile)
}

// Load reads the configuration. When path is empty the config file is
// discovered in the standard directories and, if missing, a default file is
// written to the first writable location. Environment variables override
// file values; an optional dotenv file next to the config file is loaded
// first without clobbering already-set variables.
func Load(path string) (*Config, error) {
	if path == "" {
		path = findConfigFile()
	}

	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("invalid config file %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
		// First run: persist the defaults so users have a file to edit.
		// Failure to write is not fatal; the directory may be read-only.
		_ = Default().Save(path)
	default:
		return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
	}

	// godotenv.Load never overrides variables already present in the
	// environment, so real env vars keep precedence over the dotenv file.
	envPath := filepath.Join(filepath.Dir(path), EnvFile)
	if _, err := os.Stat(envPath); err == nil {
		_ = godotenv.Load(envPath)
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("invalid environment override: %w", err)
	}

	return cfg, nil
}

// Save persists the configuration to the given path, creating parent
// directories as needed.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
