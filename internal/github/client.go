package github

import (
	"context"
	"crypto/rsa"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	gogithub "github.com/google/go-github/v58/github"
	"github.com/pkg/errors"
)

var repoURLPattern = regexp.MustCompile(`github\.com/([^/]+/[^/]+?)(?:\.git)?/?$`)

// ParseRepoFullName extracts "owner/repo" from a GitHub repository URL.
func ParseRepoFullName(repoURL string) (string, error) {
	m := repoURLPattern.FindStringSubmatch(repoURL)
	if m == nil {
		return "", errors.Errorf("not a github repository url: %s", repoURL)
	}
	return strings.TrimSuffix(m[1], "/"), nil
}

func splitFullName(fullName string) (owner, repo string, err error) {
	parts := strings.SplitN(fullName, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", errors.Errorf("invalid repository full name: %s", fullName)
	}
	return parts[0], parts[1], nil
}

// Client talks to the GitHub REST API as a GitHub App. It signs short-lived
// RS256 app JWTs and exchanges them for ~10-minute installation tokens per
// request; nothing long-lived is cached.
type Client struct {
	appID      int64
	privateKey *rsa.PrivateKey
}

// New parses the App's PEM private key eagerly so a bad credential fails at
// startup, not on the first webhook.
func New(appID int64, privateKeyPEM string) (*Client, error) {
	if appID == 0 || privateKeyPEM == "" {
		return nil, errors.New("github app credentials missing")
	}
	// Keys arriving through env vars carry literal \n sequences.
	pem := strings.ReplaceAll(privateKeyPEM, `\n`, "\n")
	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(pem))
	if err != nil {
		return nil, errors.Wrap(err, "parse github app private key")
	}
	return &Client{appID: appID, privateKey: key}, nil
}

// appJWT returns a freshly signed GitHub App JWT (10-minute validity).
func (c *Client) appJWT() (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(10 * time.Minute)),
		Issuer:    strconv.FormatInt(c.appID, 10),
	}
	return jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(c.privateKey)
}

// InstallationToken exchanges the app JWT for an installation access token.
func (c *Client) InstallationToken(ctx context.Context, installationID int64) (string, error) {
	appJWT, err := c.appJWT()
	if err != nil {
		return "", errors.Wrap(err, "sign app jwt")
	}

	gh := gogithub.NewClient(nil).WithAuthToken(appJWT)
	token, _, err := gh.Apps.CreateInstallationToken(ctx, installationID, nil)
	if err != nil {
		return "", errors.Wrapf(err, "create installation token for %d", installationID)
	}
	return token.GetToken(), nil
}

func (c *Client) installationClient(ctx context.Context, installationID int64) (*gogithub.Client, error) {
	token, err := c.InstallationToken(ctx, installationID)
	if err != nil {
		return nil, err
	}
	return gogithub.NewClient(nil).WithAuthToken(token), nil
}

// CreateBranch creates branchName off the repository's current default-branch
// head, authenticated by the given token (a user PAT or installation token).
func (c *Client) CreateBranch(ctx context.Context, token, repoFullName, branchName string) error {
	owner, repo, err := splitFullName(repoFullName)
	if err != nil {
		return err
	}

	gh := gogithub.NewClient(nil).WithAuthToken(token)

	repository, _, err := gh.Repositories.Get(ctx, owner, repo)
	if err != nil {
		return errors.Wrapf(err, "get repository %s", repoFullName)
	}

	baseRef, _, err := gh.Git.GetRef(ctx, owner, repo, "heads/"+repository.GetDefaultBranch())
	if err != nil {
		return errors.Wrapf(err, "get default branch ref for %s", repoFullName)
	}

	_, _, err = gh.Git.CreateRef(ctx, owner, repo, &gogithub.Reference{
		Ref:    gogithub.String("refs/heads/" + branchName),
		Object: &gogithub.GitObject{SHA: baseRef.Object.SHA},
	})
	if err != nil {
		return errors.Wrapf(err, "create ref %s on %s", branchName, repoFullName)
	}
	return nil
}

// PullRequestDiff fetches the full unified diff of a pull request.
func (c *Client) PullRequestDiff(ctx context.Context, installationID int64, repoFullName string, number int) (string, error) {
	owner, repo, err := splitFullName(repoFullName)
	if err != nil {
		return "", err
	}
	gh, err := c.installationClient(ctx, installationID)
	if err != nil {
		return "", err
	}
	diff, _, err := gh.PullRequests.GetRaw(ctx, owner, repo, number, gogithub.RawOptions{Type: gogithub.Diff})
	if err != nil {
		return "", errors.Wrapf(err, "fetch diff for %s#%d", repoFullName, number)
	}
	return diff, nil
}

// CreateIssueComment posts a comment on a pull request or issue.
func (c *Client) CreateIssueComment(ctx context.Context, installationID int64, repoFullName string, number int, body string) error {
	owner, repo, err := splitFullName(repoFullName)
	if err != nil {
		return err
	}
	gh, err := c.installationClient(ctx, installationID)
	if err != nil {
		return err
	}
	_, _, err = gh.Issues.CreateComment(ctx, owner, repo, number, &gogithub.IssueComment{
		Body: gogithub.String(body),
	})
	if err != nil {
		return errors.Wrapf(err, "comment on %s#%d", repoFullName, number)
	}
	return nil
}

// ListDirectories returns the subdirectories directly under path. Entries
// are repo-root-relative (e.g. "openspec/changes/<name>"), ready to be
// passed back to FileContent without re-prefixing.
func (c *Client) ListDirectories(ctx context.Context, installationID int64, repoFullName, path string) ([]string, error) {
	owner, repo, err := splitFullName(repoFullName)
	if err != nil {
		return nil, err
	}
	gh, err := c.installationClient(ctx, installationID)
	if err != nil {
		return nil, err
	}
	_, entries, resp, err := gh.Repositories.GetContents(ctx, owner, repo, path, nil)
	if err != nil {
		if resp != nil && resp.StatusCode == 404 {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "list %s in %s", path, repoFullName)
	}

	var dirs []string
	for _, e := range entries {
		if e.GetType() == "dir" {
			dirs = append(dirs, e.GetPath())
		}
	}
	return dirs, nil
}

// FileContent returns the decoded contents of a file, or "" when it is absent.
func (c *Client) FileContent(ctx context.Context, installationID int64, repoFullName, path string) (string, error) {
	owner, repo, err := splitFullName(repoFullName)
	if err != nil {
		return "", err
	}
	gh, err := c.installationClient(ctx, installationID)
	if err != nil {
		return "", err
	}
	file, _, resp, err := gh.Repositories.GetContents(ctx, owner, repo, path, nil)
	if err != nil {
		if resp != nil && resp.StatusCode == 404 {
			return "", nil
		}
		return "", errors.Wrapf(err, "fetch %s from %s", path, repoFullName)
	}
	if file == nil {
		return "", fmt.Errorf("%s in %s is not a file", path, repoFullName)
	}
	content, err := file.GetContent()
	if err != nil {
		return "", errors.Wrapf(err, "decode %s from %s", path, repoFullName)
	}
	return content, nil
}
