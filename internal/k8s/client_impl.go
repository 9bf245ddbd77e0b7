package k8s

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	clientcmdapi "k8s.io/client-go/tools/clientcmd/api"
)

// kubernetesClient implements the Client interface using client-go.
type kubernetesClient struct {
	// Configuration
	config *ClientConfig

	// Lazily built clients
	mu         sync.RWMutex
	clientset  kubernetes.Interface
	restConfig *rest.Config

	// Kubeconfig management
	kubeconfigData *clientcmdapi.Config
	currentContext string

	// Performance settings
	qpsLimit   float32
	burstLimit int
	timeout    time.Duration

	// Service-account paths, overridable in tests
	namespacePath string
}

// ClientConfig holds configuration for the Kubernetes client.
type ClientConfig struct {
	// Kubeconfig settings
	KubeconfigPath string
	Context        string

	// InCluster forces service-account authentication. When false the
	// client still falls back to in-cluster mode if no kubeconfig can be
	// loaded and the service-account environment is present.
	InCluster bool

	// Performance settings
	QPSLimit   float32
	BurstLimit int
	Timeout    time.Duration

	// Logging
	Logger *slog.Logger
}

// NewClient creates a new Kubernetes client with the given configuration.
func NewClient(config *ClientConfig) (Client, error) {
	if config == nil {
		return nil, fmt.Errorf("client configuration is required")
	}

	// Set defaults
	if config.QPSLimit == 0 {
		config.QPSLimit = DefaultQPSLimit
	}
	if config.BurstLimit == 0 {
		config.BurstLimit = DefaultBurstLimit
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultTimeout * time.Second
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.DiscardHandler)
	}

	client := &kubernetesClient{
		config:        config,
		qpsLimit:      config.QPSLimit,
		burstLimit:    config.BurstLimit,
		timeout:       config.Timeout,
		namespacePath: DefaultNamespacePath,
	}

	inCluster := config.InCluster
	if !inCluster && config.Context == "" && config.KubeconfigPath == "" {
		// Prefer the service-account environment when present: kubexec is
		// expected to run inside user notebook pods.
		inCluster = client.inClusterEnvironmentPresent()
	}

	if inCluster {
		client.currentContext = InClusterContext
		if err := client.validateInClusterEnvironment(); err != nil {
			return nil, fmt.Errorf("in-cluster authentication not available: %w", err)
		}
		config.Logger.Info("using in-cluster authentication")
		return client, nil
	}

	if err := client.loadKubeconfig(); err != nil {
		return nil, fmt.Errorf("failed to load kubeconfig: %w", err)
	}

	if config.Context != "" {
		client.currentContext = config.Context
	} else {
		client.currentContext = client.kubeconfigData.CurrentContext
	}

	// Validate current context exists
	if _, exists := client.kubeconfigData.Contexts[client.currentContext]; !exists {
		return nil, fmt.Errorf("context %q does not exist in kubeconfig", client.currentContext)
	}

	config.Logger.Debug("using kubeconfig authentication", "context", client.currentContext)
	return client, nil
}

// inClusterEnvironmentPresent reports whether the service-account files exist.
func (c *kubernetesClient) inClusterEnvironmentPresent() bool {
	if _, err := os.Stat(DefaultTokenPath); err != nil {
		return false
	}
	if _, err := os.Stat(DefaultCACertPath); err != nil {
		return false
	}
	return true
}

// validateInClusterEnvironment checks that the required in-cluster
// authentication files are present.
func (c *kubernetesClient) validateInClusterEnvironment() error {
	if _, err := os.Stat(DefaultTokenPath); os.IsNotExist(err) {
		return fmt.Errorf("service account token not found at %s", DefaultTokenPath)
	}
	if _, err := os.Stat(DefaultCACertPath); os.IsNotExist(err) {
		return fmt.Errorf("service account CA certificate not found at %s", DefaultCACertPath)
	}
	return nil
}

// loadKubeconfig loads the kubeconfig from the specified path or default locations.
func (c *kubernetesClient) loadKubeconfig() error {
	{
		kconf := os.Getenv("KUBECONFIG")
		if strings.HasPrefix(kconf, "~/") {
			uhd, _ := os.UserHomeDir()
			kconf = filepath.Join(uhd, kconf[2:])
		}

		if kconf != "" && c.config.KubeconfigPath == "" {
			c.config.KubeconfigPath = kconf
		}
	}

	loadingRules := clientcmd.NewDefaultClientConfigLoadingRules()
	if c.config.KubeconfigPath != "" {
		loadingRules.ExplicitPath = c.config.KubeconfigPath
	}

	config := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(
		loadingRules,
		&clientcmd.ConfigOverrides{},
	)

	rawConfig, err := config.RawConfig()
	if err != nil {
		return fmt.Errorf("failed to load kubeconfig: %w", err)
	}
	c.kubeconfigData = &rawConfig

	return nil
}

// getRestConfig returns the rest.Config for the active context, building and
// caching it on first use.
func (c *kubernetesClient) getRestConfig() (*rest.Config, error) {
	c.mu.RLock()
	if c.restConfig != nil {
		defer c.mu.RUnlock()
		return c.restConfig, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	// Re-check under the write lock
	if c.restConfig != nil {
		return c.restConfig, nil
	}

	var (
		restConfig *rest.Config
		err        error
	)

	if c.currentContext == InClusterContext {
		restConfig, err = rest.InClusterConfig()
		if err != nil {
			return nil, fmt.Errorf("failed to create in-cluster config: %w", err)
		}
	} else {
		loadingRules := clientcmd.NewDefaultClientConfigLoadingRules()
		if c.config.KubeconfigPath != "" {
			loadingRules.ExplicitPath = c.config.KubeconfigPath
		}

		clientConfig := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(
			loadingRules,
			&clientcmd.ConfigOverrides{CurrentContext: c.currentContext},
		)

		restConfig, err = clientConfig.ClientConfig()
		if err != nil {
			return nil, fmt.Errorf("failed to create rest config for context %q: %w", c.currentContext, err)
		}
	}

	restConfig.QPS = c.qpsLimit
	restConfig.Burst = c.burstLimit
	restConfig.Timeout = c.timeout

	c.restConfig = restConfig
	return restConfig, nil
}

// getClientset returns the clientset for the active context, building and
// caching it on first use.
func (c *kubernetesClient) getClientset() (kubernetes.Interface, error) {
	c.mu.RLock()
	if c.clientset != nil {
		defer c.mu.RUnlock()
		return c.clientset, nil
	}
	c.mu.RUnlock()

	restConfig, err := c.getRestConfig()
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.clientset != nil {
		return c.clientset, nil
	}

	clientset, err := kubernetes.NewForConfig(restConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create clientset: %w", err)
	}

	c.clientset = clientset
	return clientset, nil
}

// CurrentContext returns the name of the active context.
func (c *kubernetesClient) CurrentContext() string {
	return c.currentContext
}

// CurrentNamespace returns the namespace the client defaults to.
func (c *kubernetesClient) CurrentNamespace() string {
	if c.currentContext == InClusterContext {
		return c.getInClusterNamespace()
	}

	if c.kubeconfigData != nil {
		if ctx, ok := c.kubeconfigData.Contexts[c.currentContext]; ok && ctx.Namespace != "" {
			return ctx.Namespace
		}
	}

	return DefaultNamespace
}

// getInClusterNamespace reads the namespace from the service account mount.
func (c *kubernetesClient) getInClusterNamespace() string {
	data, err := os.ReadFile(c.namespacePath)
	if err != nil {
		return DefaultNamespace
	}
	if ns := strings.TrimSpace(string(data)); ns != "" {
		return ns
	}
	return DefaultNamespace
}

// logOperation logs a client operation at debug level.
func (c *kubernetesClient) logOperation(operation, namespace, resource, name string) {
	c.config.Logger.Debug("kubernetes operation",
		"operation", operation,
		"namespace", namespace,
		"resource", resource,
		"name", name,
	)
}
