// kuberlist is an alternate entrypoint that always runs the pod listing,
// so 'kuberlist -a' behaves like 'kubexec list -a'.
package main

import (
	"os"

	"github.com/kubexec/kubexec/cmd"
)

var version = "dev"

func main() {
	os.Args = append([]string{os.Args[0]}, listArgs(os.Args[1:])...)

	cmd.SetVersion(version)
	os.Exit(cmd.Execute())
}

// listArgs prefixes the list subcommand unless the caller asked for the
// version or help, which the root command answers directly.
func listArgs(args []string) []string {
	for _, arg := range args {
		switch arg {
		case "--version", "-h", "--help":
			return args
		}
	}
	return append([]string{"list"}, args...)
}
