package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ericfisherdev/bountybot/internal/domain/model"
	"github.com/ericfisherdev/bountybot/internal/domain/port/driven"
)

// orgSettingsRepo is the organization-wide repository that holds the
// organization's settings file.
const orgSettingsRepo = ".github"

// SettingsService layers repository settings over organization settings
// over the process-wide base settings.
type SettingsService struct {
	base   model.BotSettings
	source driven.SettingsSource
	path   string
	logger *slog.Logger
}

// NewSettingsService creates a SettingsService. A nil source disables
// per-repository overrides.
func NewSettingsService(base model.BotSettings, source driven.SettingsSource, path string, logger *slog.Logger) *SettingsService {
	return &SettingsService{
		base:   base,
		source: source,
		path:   path,
		logger: orDefault(logger),
	}
}

// Load returns the effective settings for repoFullName. The organization
// file is read from <owner>/.github and the repository file from the
// repository itself, both at the configured path.
func (s *SettingsService) Load(ctx context.Context, repoFullName string) (model.BotSettings, error) {
	if s.source == nil {
		return s.base, nil
	}

	owner, _, ok := strings.Cut(repoFullName, "/")
	if !ok || owner == "" {
		return model.BotSettings{}, fmt.Errorf("invalid repo name %q", repoFullName)
	}

	org, err := s.source.FetchSettings(ctx, owner+"/"+orgSettingsRepo, s.path)
	if err != nil {
		return model.BotSettings{}, fmt.Errorf("load organization settings: %w", err)
	}

	var repo *model.SettingsOverride
	if !strings.EqualFold(repoFullName, owner+"/"+orgSettingsRepo) {
		repo, err = s.source.FetchSettings(ctx, repoFullName, s.path)
		if err != nil {
			return model.BotSettings{}, fmt.Errorf("load repository settings: %w", err)
		}
	}

	s.logger.Debug("settings loaded", "repo", repoFullName, "org_override", org != nil, "repo_override", repo != nil)
	return model.MergeSettings(s.base, org, repo), nil
}
