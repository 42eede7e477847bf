package github

import (
	"context"
	"fmt"

	gh "github.com/google/go-github/v82/github"
	"gopkg.in/yaml.v3"

	"github.com/ericfisherdev/bountybot/internal/domain/model"
)

// FetchSettings reads a YAML settings override from the repository's default
// branch. It returns nil, nil when the file does not exist.
func (c *Client) FetchSettings(ctx context.Context, repoFullName string, path string) (*model.SettingsOverride, error) {
	owner, repo, err := splitRepo(repoFullName)
	if err != nil {
		return nil, err
	}

	file, _, resp, err := c.gh.Repositories.GetContents(ctx, owner, repo, path, &gh.RepositoryContentGetOptions{})
	if err != nil {
		if isNotFound(resp) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetching %s from %s: %w", path, repoFullName, err)
	}
	if file == nil {
		return nil, fmt.Errorf("fetching %s from %s: path is a directory", path, repoFullName)
	}

	content, err := file.GetContent()
	if err != nil {
		return nil, fmt.Errorf("decoding %s from %s: %w", path, repoFullName, err)
	}

	return ParseSettings([]byte(content))
}

// ParseSettings decodes a settings override document. An empty document
// yields an empty override.
func ParseSettings(data []byte) (*model.SettingsOverride, error) {
	var o model.SettingsOverride
	if err := yaml.Unmarshal(data, &o); err != nil {
		return nil, fmt.Errorf("parsing settings: %w", err)
	}
	return &o, nil
}
