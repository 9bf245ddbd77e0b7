package executor

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// scriptExtensions are the file extensions recognized as executable scripts.
var scriptExtensions = map[string]bool{
	".sh": true,
	".py": true,
	".pl": true,
	".R":  true,
	".rb": true,
	".js": true,
}

// IsScriptFile reports whether the target names an existing file that looks
// like a script: a known extension or the executable bit set.
func IsScriptFile(target string) bool {
	info, err := os.Stat(target)
	if err != nil || info.IsDir() {
		return false
	}
	if scriptExtensions[filepath.Ext(target)] {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}

// ReadScript reads the script file's content.
func ReadScript(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read script file %s: %w", path, err)
	}
	return string(data), nil
}

// scriptCommand wraps a script's content into a bash command line that ships
// the script into the container through a quoted heredoc, marks it
// executable and runs it. entryDir, when non-empty, is changed into first.
func scriptCommand(scriptName, content, entryDir string) []string {
	var b strings.Builder
	if entryDir != "" {
		fmt.Fprintf(&b, "cd %s && ", entryDir)
	}
	fmt.Fprintf(&b, "cat << 'KUBEXEC_SCRIPT_EOF' > /tmp/%s\n", scriptName)
	b.WriteString(content)
	if !strings.HasSuffix(content, "\n") {
		b.WriteByte('\n')
	}
	b.WriteString("KUBEXEC_SCRIPT_EOF\n")
	fmt.Fprintf(&b, "chmod +x /tmp/%s && /tmp/%s", scriptName, scriptName)
	return []string{"/bin/bash", "-c", b.String()}
}

// shellCommand wraps an inline command string for bash, changing into
// entryDir first when non-empty.
func shellCommand(target, entryDir string) []string {
	if entryDir != "" {
		return []string{"/bin/bash", "-c", fmt.Sprintf("cd %s && %s", entryDir, target)}
	}
	return []string{"/bin/bash", "-c", target}
}

// entryDir maps the caller's working directory into the shared mounts. Paths
// already under a shared mount are preserved so relative references keep
// working inside the job; anything else falls back to the team mount.
func entryDir(cwd string) string {
	switch {
	case strings.HasPrefix(cwd, "/shared/team"):
		return cwd
	case strings.HasPrefix(cwd, "/shared/public"):
		return cwd
	default:
		return "/shared/team"
	}
}
