package workflow

import (
	"bytes"
	"context"
	"os/exec"

	"github.com/aegis-run/orchestrator/internal/domain"
)

// SystemStateExecutor runs a shell command on the orchestrator host
// under the state's timeout via exec.CommandContext.
type SystemStateExecutor struct {
	shell string // set to "sh" by NewSystemStateExecutor
}

func NewSystemStateExecutor() *SystemStateExecutor {
	return &SystemStateExecutor{shell: "sh"}
}

func (e *SystemStateExecutor) Supports(kind domain.StateKind) bool { return kind == domain.StateSystem }

// Execute returns a map[string]interface{} (rather than a typed
// struct) so the engine's blackboard path lookups (e.g. "build.exit_code"
// in a transition condition) can traverse into it the same way they do
// every other state kind's output.
func (e *SystemStateExecutor) Execute(ctx context.Context, we *domain.WorkflowExecution, name string, st domain.State) (interface{}, error) {
	command := expandTemplate(st.Command, we.Blackboard)
	cmd := exec.CommandContext(ctx, e.shell, "-c", command)
	cmd.Dir = st.Workdir
	cmd.Env = envSlice(st.Env)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	exitCode := 0
	if exitErr, ok := err.(*exec.ExitError); ok {
		exitCode = exitErr.ExitCode()
		err = nil
	}
	out := map[string]interface{}{
		"stdout":    stdout.String(),
		"stderr":    stderr.String(),
		"exit_code": exitCode,
	}
	return out, err
}

func envSlice(env map[string]string) []string {
	if len(env) == 0 {
		return nil
	}
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	return out
}
