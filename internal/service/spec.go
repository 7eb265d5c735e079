package service

import (
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Spec describes one supervised service. Specs are loaded once from config
// and never mutated afterwards; the supervisor treats the table as read-only.
type Spec struct {
	Name       string        `json:"name"`
	Command    string        `json:"command"`    // command to start the service (shell-aware)
	WorkDir    string        `json:"work_dir"`   // optional working dir
	Env        []string      `json:"env"`        // optional extra env, KEY=VALUE
	Port       uint16        `json:"port"`       // TCP port the service is expected to bind
	HealthURL  string        `json:"health_url"` // optional readiness URL; "" means port-probe only
	StartGrace time.Duration `json:"startsecs"`  // time the process must stay up to count as started
	StopWait   time.Duration `json:"stopwait"`   // wait after SIGTERM before SIGKILL
	LogPath    string        `json:"log_path"`   // combined stdout/stderr sink for the child
}

// DefaultHealthURL returns the conventional health endpoint for a port.
// The local servers this tool grew up supervising all expose /health.
func DefaultHealthURL(port uint16) string {
	return fmt.Sprintf("http://127.0.0.1:%d/health", port)
}

// shellMeta is the set of characters that force a command through /bin/sh.
const shellMeta = "|&;<>*?`$\"'(){}[]~"

// BuildCommand constructs an *exec.Cmd for Command. A plain "binary args"
// command execs directly; anything carrying shell metacharacters runs under
// /bin/sh -c. A command that already spells out "sh -c <script>" keeps its
// script as the single -c argument, so operators never end up with a shell
// inside a shell. Tables reject empty commands at load time, so Command is
// never blank here.
func (s *Spec) BuildCommand() *exec.Cmd {
	cmdStr := strings.TrimSpace(s.Command)
	if script, ok := explicitShellScript(cmdStr); ok {
		// #nosec G204 -- operator-authored command from the service table
		return exec.Command("/bin/sh", "-c", script)
	}
	if strings.ContainsAny(cmdStr, shellMeta) {
		// #nosec G204
		return exec.Command("/bin/sh", "-c", cmdStr)
	}
	parts := strings.Fields(cmdStr)
	// #nosec G204
	return exec.Command(parts[0], parts[1:]...)
}

// explicitShellScript reports whether cmd already invokes "sh -c" and, if
// so, returns the script portion. One matching pair of surrounding quotes is
// stripped; the quoting inside the script is left alone.
func explicitShellScript(cmd string) (string, bool) {
	for _, prefix := range []string{"sh -c ", "/bin/sh -c ", "/usr/bin/sh -c "} {
		script, ok := strings.CutPrefix(cmd, prefix)
		if !ok {
			continue
		}
		if n := len(script); n >= 2 && script[0] == script[n-1] && (script[0] == '\'' || script[0] == '"') {
			script = script[1 : n-1]
		}
		return script, true
	}
	return "", false
}
