// Package cmd provides the command-line interface for kubexec.
//
// The root command executes a shell command or script inside a Kubernetes
// pod. Subcommands cover the surrounding workflow:
//   - list: Shows the pods of the target namespace as a table
//   - jobs: Lists and cleans up Jobs created by kubexec
//   - version: Displays the application version
//   - self-update: Updates the binary to the latest version from GitHub releases
//
// Command Structure:
//
//	kubexec TARGET [flags]            # Run TARGET on the cluster
//	kubexec list [flags]              # List pods
//	kubexec jobs                      # List kubexec jobs
//	kubexec jobs cleanup [flags]      # Delete old kubexec jobs
//	kubexec version                   # Shows version information
//	kubexec self-update               # Updates to latest release
//	kubexec help [command]            # Shows help information
//
// Execution targets an existing pod with --pod-name, or creates a one-shot
// Job with the configured image, resources and volume mounts. The exit code
// of the in-container command becomes the exit code of kubexec itself.
package cmd
