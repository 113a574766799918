package execengine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
)

// DockerRuntime spawns one container per agent instance and execs the
// agent's task_input into it as a JSON-encoded argument, collecting
// stdout/stderr via attach + stdcopy demux, then waiting for exit.
type DockerRuntime struct {
	client *client.Client
}

// NewDockerRuntime opens a docker client from the ambient environment
// (DOCKER_HOST etc.), matching services.NewDockerBackend.
func NewDockerRuntime() (*DockerRuntime, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("execengine: docker client: %w", err)
	}
	return &DockerRuntime{client: cli}, nil
}

func (r *DockerRuntime) Close() error { return r.client.Close() }

// Spawn creates and starts a container for cfg.RuntimeImage that runs
// `sleep infinity` as a keep-alive, returning its container ID as the
// instance ID; tasks run in it through Execute's exec calls.
func (r *DockerRuntime) Spawn(ctx context.Context, cfg RuntimeConfig) (string, error) {
	env := make([]string, 0, len(cfg.Env))
	for k, v := range cfg.Env {
		env = append(env, k+"="+v)
	}
	resp, err := r.client.ContainerCreate(ctx, &container.Config{
		Image:      cfg.RuntimeImage,
		Env:        env,
		Cmd:        []string{"sleep", "infinity"},
		Tty:        false,
		WorkingDir: "/workspace",
	}, &container.HostConfig{}, nil, nil, "")
	if err != nil {
		return "", fmt.Errorf("execengine: container create: %w", err)
	}
	if err := r.client.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		return "", fmt.Errorf("execengine: container start: %w", err)
	}
	return resp.ID, nil
}

// Execute execs the agent's entrypoint with taskInput serialized as a
// single JSON argument and demuxes the combined stdout/stderr into one
// TaskOutput. The agent's own entrypoint is responsible for producing
// a single JSON object on its final stdout line, which Execute parses
// into TaskOutput.Result (keeping the raw line if it is not JSON).
func (r *DockerRuntime) Execute(ctx context.Context, instanceID string, taskInput map[string]interface{}) (TaskOutput, error) {
	payload, err := json.Marshal(taskInput)
	if err != nil {
		return TaskOutput{}, fmt.Errorf("execengine: marshal task input: %w", err)
	}

	execResp, err := r.client.ContainerExecCreate(ctx, instanceID, container.ExecOptions{
		Cmd:          []string{"/usr/local/bin/agent-entrypoint", string(payload)},
		AttachStdout: true,
		AttachStderr: true,
	})
	if err != nil {
		return TaskOutput{}, fmt.Errorf("execengine: exec create: %w", err)
	}

	attach, err := r.client.ContainerExecAttach(ctx, execResp.ID, container.ExecAttachOptions{})
	if err != nil {
		return TaskOutput{}, fmt.Errorf("execengine: exec attach: %w", err)
	}
	defer attach.Close()

	var stdout, stderr bytes.Buffer
	if _, err := stdcopy.StdCopy(&stdout, &stderr, attach.Reader); err != nil && err != io.EOF {
		return TaskOutput{}, fmt.Errorf("execengine: demux output: %w", err)
	}

	logs := []string{}
	if stderr.Len() > 0 {
		logs = append(logs, stderr.String())
	}

	var result interface{}
	line := lastNonEmptyLine(stdout.String())
	if line != "" {
		if err := json.Unmarshal([]byte(line), &result); err != nil {
			result = line
		}
	}

	return TaskOutput{Result: result, Logs: logs}, nil
}

// Stop removes the container, best-effort, used both for normal
// cleanup after an iteration loop ends and for cancellation.
func (r *DockerRuntime) Stop(ctx context.Context, instanceID string) error {
	timeout := 0
	_ = r.client.ContainerStop(ctx, instanceID, container.StopOptions{Timeout: &timeout})
	return r.client.ContainerRemove(ctx, instanceID, container.RemoveOptions{Force: true})
}

func lastNonEmptyLine(s string) string {
	start := len(s)
	end := len(s)
	for start > 0 {
		start--
		if s[start] == '\n' {
			if end > start+1 {
				break
			}
			end = start
		}
	}
	line := s[start:end]
	for len(line) > 0 && (line[0] == '\n' || line[0] == '\r') {
		line = line[1:]
	}
	return line
}
