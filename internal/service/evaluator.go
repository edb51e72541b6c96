package service

import (
	"context"
	"fmt"
	"path"

	log "github.com/sirupsen/logrus"

	"equilibra/internal/ai"
)

const noContracts = "No contracts found in repository."

type gitReviewer interface {
	PullRequestDiff(ctx context.Context, installationID int64, repoFullName string, number int) (string, error)
	ListDirectories(ctx context.Context, installationID int64, repoFullName, path string) ([]string, error)
	FileContent(ctx context.Context, installationID int64, repoFullName, path string) (string, error)
	CreateIssueComment(ctx context.Context, installationID int64, repoFullName string, number int, body string) error
}

type prJudge interface {
	EvaluatePR(ctx context.Context, repoFullName, contracts, diff string) (ai.PRVerdict, bool)
}

// Evaluator runs the AI contract review for a pull request and posts the
// verdict as a PR comment. It never reports errors upward: a review that
// cannot complete degrades to the fallback verdict rather than blocking the
// webhook pipeline.
type Evaluator struct {
	git   gitReviewer
	judge prJudge
}

func NewEvaluator(git gitReviewer, judge prJudge) *Evaluator {
	return &Evaluator{git: git, judge: judge}
}

// Evaluate fetches the PR diff and every contract under openspec/changes,
// asks the judge for a verdict, and comments it on the pull request.
func (e *Evaluator) Evaluate(ctx context.Context, repoFullName string, prNumber int, installationID int64) {
	logCtx := log.WithFields(log.Fields{"repo": repoFullName, "pr": prNumber})

	diff, err := e.git.PullRequestDiff(ctx, installationID, repoFullName, prNumber)
	if err != nil {
		logCtx.WithError(err).Error("diff fetch failed")
		return
	}

	contracts := e.collectContracts(ctx, installationID, repoFullName, logCtx)

	verdict, live := e.judge.EvaluatePR(ctx, repoFullName, contracts, diff)
	if !live {
		logCtx.Warn("posting fallback verdict")
	}

	if err := e.git.CreateIssueComment(ctx, installationID, repoFullName, prNumber, formatVerdict(verdict)); err != nil {
		logCtx.WithError(err).Error("verdict comment failed")
		return
	}
	logCtx.WithField("verdict", verdict.Verdict).Info("review posted")
}

// collectContracts concatenates every tasks.md and design.md under
// openspec/changes/*. Fetch failures degrade to whatever was gathered.
func (e *Evaluator) collectContracts(ctx context.Context, installationID int64, repoFullName string, logCtx *log.Entry) string {
	dirs, err := e.git.ListDirectories(ctx, installationID, repoFullName, changesRoot)
	if err != nil {
		logCtx.WithError(err).Warn("contract listing failed")
		return noContracts
	}

	var contracts string
	for _, dir := range dirs {
		for _, name := range []string{"tasks.md", "design.md"} {
			filePath := path.Join(dir, name)
			content, err := e.git.FileContent(ctx, installationID, repoFullName, filePath)
			if err != nil {
				logCtx.WithError(err).WithField("path", filePath).Warn("contract read failed")
				continue
			}
			if content == "" {
				continue
			}
			contracts += fmt.Sprintf("--- FILE: %s ---\n%s\n\n", filePath, content)
		}
	}
	if contracts == "" {
		return noContracts
	}
	return contracts
}

func formatVerdict(v ai.PRVerdict) string {
	icon := "✅"
	if v.Verdict != "PASS" {
		icon = "❌"
	}
	return fmt.Sprintf("## %s SpecOps AI Review\n**Targeted Contract:** `%s`\n**Verdict:** `%s`\n\n%s",
		icon, v.IdentifiedContract, v.Verdict, v.Feedback)
}
