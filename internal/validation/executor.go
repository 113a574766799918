// Package validation implements the multi-judge gradient-consensus
// scorer: it fans a ValidationRequest out to every configured judge
// agent, parses each judge's scored opinion back out of its execution
// output, and aggregates the surviving results into a single
// accept/refine verdict. The fan-out is a goroutine per judge joined
// on a WaitGroup; internal/execengine exposes a blocking RunJudge, so
// no completion polling is needed here.
package validation

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/aegis-run/orchestrator/internal/domain"
)

// Executor is the narrow slice of internal/execengine.Engine this
// package depends on. Defined locally so validation imports execengine
// (for RunJudge and the ConsensusConfig/ConsensusResult types) while
// execengine never imports validation; see
// internal/execengine/consensus.go's matching note.
type Executor interface {
	RunJudge(ctx context.Context, parentHierarchy domain.Hierarchy, parentExecID domain.ExecutionID, judgeAgentID domain.AgentID, payload map[string]interface{}) (*domain.Execution, error)
}

// extractJSON pulls a fenced ```json ... ``` or generic ``` ... ```
// block out of text, falling back to text itself when no fence is
// found. Judge agents are LLM-backed and routinely wrap their
// structured answer in markdown.
func extractJSON(text string) string {
	if block, ok := fencedBlock(text, "```json"); ok {
		return block
	}
	if block, ok := fencedBlock(text, "```"); ok {
		return block
	}
	return text
}

func fencedBlock(text, marker string) (string, bool) {
	start := strings.Index(text, marker)
	if start < 0 {
		return "", false
	}
	contentStart := start + len(marker)
	end := strings.Index(text[contentStart:], "```")
	if end < 0 {
		return "", false
	}
	return strings.TrimSpace(text[contentStart : contentStart+end]), true
}

// parseGradientResult extracts the judge's GradientResult from its
// final iteration's output, whatever concrete shape that output
// arrived in (a string, or already-decoded JSON via map[string]any).
func parseGradientResult(output interface{}) (*domain.GradientResult, error) {
	switch v := output.(type) {
	case nil:
		return nil, errNoOutput
	case string:
		raw := extractJSON(v)
		var result domain.GradientResult
		if err := json.Unmarshal([]byte(raw), &result); err != nil {
			return nil, err
		}
		return &result, nil
	default:
		// Already-structured output (e.g. the fake runtime in tests, or
		// a runtime that parses JSON itself): round-trip through
		// encoding/json to land on domain.GradientResult regardless of
		// the concrete map/struct type the runtime handed back.
		buf, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		var result domain.GradientResult
		if err := json.Unmarshal(buf, &result); err != nil {
			return nil, err
		}
		return &result, nil
	}
}
