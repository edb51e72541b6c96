package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"equilibra/internal/ai"
)

// reviewGit mirrors the contents API: directory entries come back
// repo-root-relative.
type reviewGit struct {
	diff      string
	dirs      []string
	files     map[string]string
	requested []string
	comment   string
}

func (g *reviewGit) PullRequestDiff(ctx context.Context, installationID int64, repoFullName string, number int) (string, error) {
	return g.diff, nil
}

func (g *reviewGit) ListDirectories(ctx context.Context, installationID int64, repoFullName, path string) ([]string, error) {
	return g.dirs, nil
}

func (g *reviewGit) FileContent(ctx context.Context, installationID int64, repoFullName, path string) (string, error) {
	g.requested = append(g.requested, path)
	return g.files[path], nil
}

func (g *reviewGit) CreateIssueComment(ctx context.Context, installationID int64, repoFullName string, number int, body string) error {
	g.comment = body
	return nil
}

type recordingJudge struct {
	contracts string
	verdict   ai.PRVerdict
}

func (j *recordingJudge) EvaluatePR(ctx context.Context, repoFullName, contracts, diff string) (ai.PRVerdict, bool) {
	j.contracts = contracts
	return j.verdict, true
}

func TestEvaluator_Evaluate(t *testing.T) {
	git := &reviewGit{
		diff: "diff --git a/search.go b/search.go",
		dirs: []string{"openspec/changes/add-search"},
		files: map[string]string{
			"openspec/changes/add-search/tasks.md":  "- [ ] Implement search endpoint",
			"openspec/changes/add-search/design.md": "Search uses trigram indexes.",
		},
	}
	judge := &recordingJudge{verdict: ai.PRVerdict{
		IdentifiedContract: "add-search",
		Verdict:            "PASS",
		Feedback:           "Matches the change contract.",
	}}
	eval := NewEvaluator(git, judge)

	eval.Evaluate(context.Background(), "acme/widgets", 7, 42)

	assert.Equal(t, []string{
		"openspec/changes/add-search/tasks.md",
		"openspec/changes/add-search/design.md",
	}, git.requested)
	assert.Contains(t, judge.contracts, "--- FILE: openspec/changes/add-search/tasks.md ---")
	assert.Contains(t, judge.contracts, "trigram indexes")
	require.NotEmpty(t, git.comment)
	assert.Contains(t, git.comment, "✅")
	assert.Contains(t, git.comment, "**Verdict:** `PASS`")
}

func TestEvaluator_Evaluate_NoContracts(t *testing.T) {
	git := &reviewGit{diff: "diff --git a/x b/x"}
	judge := &recordingJudge{verdict: ai.PRVerdict{Verdict: "FAIL", Feedback: "No grounding."}}
	eval := NewEvaluator(git, judge)

	eval.Evaluate(context.Background(), "acme/widgets", 7, 42)

	assert.Equal(t, noContracts, judge.contracts)
	assert.Contains(t, git.comment, "❌")
}
