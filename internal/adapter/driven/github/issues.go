package github

import (
	"context"
	"fmt"
	"strings"

	gh "github.com/google/go-github/v82/github"

	"github.com/ericfisherdev/bountybot/internal/domain/model"
)

// The go-github types do not carry body_html; these wrappers add it.
type (
	fullIssue struct {
		gh.Issue
		BodyHTML string `json:"body_html"`
	}
	fullComment struct {
		gh.IssueComment
		BodyHTML string `json:"body_html"`
	}
	fullReview struct {
		gh.PullRequestReview
		BodyHTML string `json:"body_html"`
	}
)

// FetchIssue returns the issue with its rendered description.
func (c *Client) FetchIssue(ctx context.Context, repoFullName string, number int) (*model.Issue, error) {
	owner, repo, err := splitRepo(repoFullName)
	if err != nil {
		return nil, err
	}

	var issue fullIssue
	path := fmt.Sprintf("repos/%s/%s/issues/%d", owner, repo, number)
	resp, err := c.getFull(ctx, path, &issue)
	if err != nil {
		return nil, fmt.Errorf("fetching issue %s#%d: %w", repoFullName, number, err)
	}

	logRateLimit(resp, repoFullName+"/issue", 0, 1)

	m := MapIssue(&issue.Issue, repoFullName)
	m.BodyHTML = renderIfMissing(issue.BodyHTML, m.Body)
	return &m, nil
}

// FetchIssueComments retrieves every conversation comment on an issue or
// pull request. It handles pagination and fills BodyHTML for each comment.
func (c *Client) FetchIssueComments(ctx context.Context, repoFullName string, number int) ([]model.Comment, error) {
	owner, repo, err := splitRepo(repoFullName)
	if err != nil {
		return nil, err
	}

	var all []model.Comment
	page := 1

	for {
		var comments []fullComment
		path := fmt.Sprintf("repos/%s/%s/issues/%d/comments?per_page=100&page=%d", owner, repo, number, page)
		resp, err := c.getFull(ctx, path, &comments)
		if err != nil {
			return nil, fmt.Errorf("listing comments for %s#%d (page %d): %w", repoFullName, number, page, err)
		}

		logRateLimit(resp, repoFullName+"/comments", page, len(comments))

		for _, fc := range comments {
			all = append(all, model.Comment{
				ID:        fc.GetID(),
				Author:    MapUser(fc.GetUser()),
				Body:      fc.GetBody(),
				BodyHTML:  renderIfMissing(fc.BodyHTML, fc.GetBody()),
				CreatedAt: fc.GetCreatedAt().Time,
			})
		}

		if resp.NextPage == 0 {
			break
		}
		page = resp.NextPage
	}

	return all, nil
}

// FetchReviews retrieves all submitted reviews on a pull request.
func (c *Client) FetchReviews(ctx context.Context, repoFullName string, prNumber int) ([]model.Review, error) {
	owner, repo, err := splitRepo(repoFullName)
	if err != nil {
		return nil, err
	}

	var all []model.Review
	page := 1

	for {
		var reviews []fullReview
		path := fmt.Sprintf("repos/%s/%s/pulls/%d/reviews?per_page=100&page=%d", owner, repo, prNumber, page)
		resp, err := c.getFull(ctx, path, &reviews)
		if err != nil {
			return nil, fmt.Errorf("listing reviews for %s#%d (page %d): %w", repoFullName, prNumber, page, err)
		}

		logRateLimit(resp, repoFullName+"/reviews", page, len(reviews))

		for _, r := range reviews {
			all = append(all, model.Review{
				ID:          r.GetID(),
				Author:      MapUser(r.GetUser()),
				State:       strings.ToLower(r.GetState()),
				Body:        r.GetBody(),
				BodyHTML:    renderIfMissing(r.BodyHTML, r.GetBody()),
				SubmittedAt: r.GetSubmittedAt().Time,
			})
		}

		if resp.NextPage == 0 {
			break
		}
		page = resp.NextPage
	}

	return all, nil
}

// FetchLinkedPullRequests returns pull requests in the same repository that
// cross-reference the issue, taken from the issue timeline.
func (c *Client) FetchLinkedPullRequests(ctx context.Context, repoFullName string, issueNumber int) ([]model.PullRequest, error) {
	owner, repo, err := splitRepo(repoFullName)
	if err != nil {
		return nil, err
	}

	opts := &gh.ListOptions{PerPage: 100}
	seen := make(map[int]bool)
	var linked []model.PullRequest

	for {
		events, resp, err := c.gh.Issues.ListIssueTimeline(ctx, owner, repo, issueNumber, opts)
		if err != nil {
			return nil, fmt.Errorf("listing timeline for %s#%d (page %d): %w", repoFullName, issueNumber, opts.Page, err)
		}

		logRateLimit(resp, repoFullName+"/timeline", opts.Page, len(events))

		for _, ev := range events {
			if ev.GetEvent() != "cross-referenced" {
				continue
			}
			src := ev.GetSource().GetIssue()
			if src == nil || !src.IsPullRequest() || seen[src.GetNumber()] {
				continue
			}
			if !sameRepo(src, repoFullName) {
				continue
			}
			seen[src.GetNumber()] = true
			linked = append(linked, mapLinkedPR(src))
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return linked, nil
}

// MapIssue converts a go-github Issue to a domain model Issue. BodyHTML is
// left empty; webhook payloads do not carry it.
func MapIssue(issue *gh.Issue, repoFullName string) model.Issue {
	labels := make([]string, 0, len(issue.Labels))
	for _, l := range issue.Labels {
		labels = append(labels, l.GetName())
	}

	assignees := make([]model.User, 0, len(issue.Assignees))
	for _, a := range issue.Assignees {
		assignees = append(assignees, MapUser(a))
	}
	if len(assignees) == 0 && issue.Assignee != nil {
		assignees = append(assignees, MapUser(issue.Assignee))
	}

	return model.Issue{
		ID:           issue.GetID(),
		NodeID:       issue.GetNodeID(),
		Number:       issue.GetNumber(),
		RepoFullName: repoFullName,
		Title:        issue.GetTitle(),
		Body:         issue.GetBody(),
		State:        issue.GetState(),
		StateReason:  model.StateReason(issue.GetStateReason()),
		Author:       MapUser(issue.GetUser()),
		Assignees:    assignees,
		Labels:       labels,
		CreatedAt:    issue.GetCreatedAt().Time,
		ClosedAt:     issue.GetClosedAt().Time,
	}
}

func mapLinkedPR(src *gh.Issue) model.PullRequest {
	links := src.GetPullRequestLinks()
	return model.PullRequest{
		Number:    src.GetNumber(),
		Title:     src.GetTitle(),
		Author:    MapUser(src.GetUser()),
		State:     src.GetState(),
		Merged:    !links.GetMergedAt().IsZero(),
		URL:       src.GetHTMLURL(),
		CreatedAt: src.GetCreatedAt().Time,
	}
}

// sameRepo compares the source issue's repository with repoFullName.
// Timeline payloads carry either a repository object or only its API URL.
func sameRepo(src *gh.Issue, repoFullName string) bool {
	if name := src.GetRepository().GetFullName(); name != "" {
		return strings.EqualFold(name, repoFullName)
	}
	return strings.HasSuffix(strings.ToLower(src.GetRepositoryURL()), "/repos/"+strings.ToLower(repoFullName))
}
