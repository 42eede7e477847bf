package github

import (
	"context"
	"fmt"
	"strings"

	gh "github.com/google/go-github/v82/github"

	"github.com/ericfisherdev/bountybot/internal/domain/model"
)

// GetLabel returns the repository label definition, or nil if it does not exist.
func (c *Client) GetLabel(ctx context.Context, repoFullName string, name string) (*model.Label, error) {
	owner, repo, err := splitRepo(repoFullName)
	if err != nil {
		return nil, err
	}

	label, resp, err := c.gh.Issues.GetLabel(ctx, owner, repo, name)
	if err != nil {
		if isNotFound(resp) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetching label %q in %s: %w", name, repoFullName, err)
	}

	return &model.Label{
		Name:        label.GetName(),
		Color:       label.GetColor(),
		Description: label.GetDescription(),
	}, nil
}

// CreateLabel defines a new repository label.
func (c *Client) CreateLabel(ctx context.Context, repoFullName string, label model.Label) error {
	owner, repo, err := splitRepo(repoFullName)
	if err != nil {
		return err
	}

	req := &gh.Label{Name: gh.Ptr(label.Name)}
	if label.Color != "" {
		req.Color = gh.Ptr(strings.TrimPrefix(label.Color, "#"))
	}
	if label.Description != "" {
		req.Description = gh.Ptr(label.Description)
	}

	if _, _, err := c.gh.Issues.CreateLabel(ctx, owner, repo, req); err != nil {
		return fmt.Errorf("creating label %q in %s: %w", label.Name, repoFullName, err)
	}
	return nil
}

// AddLabel attaches an existing label to an issue.
func (c *Client) AddLabel(ctx context.Context, repoFullName string, number int, name string) error {
	owner, repo, err := splitRepo(repoFullName)
	if err != nil {
		return err
	}

	if _, _, err := c.gh.Issues.AddLabelsToIssue(ctx, owner, repo, number, []string{name}); err != nil {
		return fmt.Errorf("adding label %q to %s#%d: %w", name, repoFullName, number, err)
	}
	return nil
}

// RemoveLabel detaches a label from an issue. A label that is not attached
// is not an error.
func (c *Client) RemoveLabel(ctx context.Context, repoFullName string, number int, name string) error {
	owner, repo, err := splitRepo(repoFullName)
	if err != nil {
		return err
	}

	resp, err := c.gh.Issues.RemoveLabelForIssue(ctx, owner, repo, number, name)
	if err != nil {
		if isNotFound(resp) {
			return nil
		}
		return fmt.Errorf("removing label %q from %s#%d: %w", name, repoFullName, number, err)
	}
	return nil
}

// CreateComment posts a top-level comment on an issue.
func (c *Client) CreateComment(ctx context.Context, repoFullName string, number int, body string) error {
	owner, repo, err := splitRepo(repoFullName)
	if err != nil {
		return err
	}

	_, _, err = c.gh.Issues.CreateComment(ctx, owner, repo, number, &gh.IssueComment{
		Body: gh.Ptr(body),
	})
	if err != nil {
		return fmt.Errorf("creating comment on %s#%d: %w", repoFullName, number, err)
	}

	return nil
}
