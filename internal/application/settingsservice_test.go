package application

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/bountybot/internal/domain/model"
)

func boolPtr(b bool) *bool { return &b }

func TestSettingsService_RepoOverridesOrgOverridesBase(t *testing.T) {
	orgMax := dec("500")
	repoMax := dec("50")
	source := &mockSettingsSource{overrides: map[string]*model.SettingsOverride{
		"acme/.github": {PaymentPermitMaxPrice: &orgMax, IncentiveMode: boolPtr(true)},
		"acme/widgets": {PaymentPermitMaxPrice: &repoMax},
	}}
	svc := NewSettingsService(model.DefaultBotSettings(), source, ".github/bountybot.yml", nil)

	got, err := svc.Load(context.Background(), "acme/widgets")

	require.NoError(t, err)
	assert.True(t, got.PaymentPermitMaxPrice.Equal(repoMax))
	assert.True(t, got.IncentiveMode)
	assert.True(t, got.AutoPayMode, "unset fields inherit the base")
	assert.Equal(t, []string{"acme/.github", "acme/widgets"}, source.requested)
}

func TestSettingsService_OrgRepoReadOnce(t *testing.T) {
	source := &mockSettingsSource{}
	svc := NewSettingsService(model.DefaultBotSettings(), source, "x.yml", nil)

	_, err := svc.Load(context.Background(), "acme/.github")

	require.NoError(t, err)
	assert.Equal(t, []string{"acme/.github"}, source.requested)
}

func TestSettingsService_NoFilesReturnsBase(t *testing.T) {
	base := model.DefaultBotSettings()
	svc := NewSettingsService(base, &mockSettingsSource{}, "x.yml", nil)

	got, err := svc.Load(context.Background(), "acme/widgets")

	require.NoError(t, err)
	assert.Equal(t, base, got)
}

func TestSettingsService_NilSourceReturnsBase(t *testing.T) {
	base := model.DefaultBotSettings()
	svc := NewSettingsService(base, nil, "x.yml", nil)

	got, err := svc.Load(context.Background(), "anything")

	require.NoError(t, err)
	assert.Equal(t, base, got)
}

func TestSettingsService_Errors(t *testing.T) {
	svc := NewSettingsService(model.DefaultBotSettings(), &mockSettingsSource{err: errors.New("boom")}, "x.yml", nil)

	_, err := svc.Load(context.Background(), "acme/widgets")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "organization settings")

	_, err = svc.Load(context.Background(), "no-slash")
	require.Error(t, err)
}
