package application

import (
	"context"
	"errors"
	"fmt"
	"hash/crc32"
	"math/big"
	"regexp"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/ericfisherdev/bountybot/internal/domain/model"
	"github.com/ericfisherdev/bountybot/internal/domain/port/driven"
)

// --- Issue tracker ---

type labelCall struct {
	Op   string // "add", "remove", "create"
	Name string
}

type mockTracker struct {
	mu sync.Mutex

	issue       *model.Issue
	comments    map[int][]model.Comment
	reviews     map[int][]model.Review
	linked      []model.PullRequest
	repoLabels  map[string]bool
	fetchErr    error
	postErr     error
	labelCalls  []labelCall
	posted      []string
	commentsErr error
}

func newMockTracker() *mockTracker {
	return &mockTracker{
		comments:   make(map[int][]model.Comment),
		reviews:    make(map[int][]model.Review),
		repoLabels: make(map[string]bool),
	}
}

func (m *mockTracker) FetchIssue(_ context.Context, _ string, _ int) (*model.Issue, error) {
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	return m.issue, nil
}

func (m *mockTracker) FetchIssueComments(_ context.Context, _ string, number int) ([]model.Comment, error) {
	if m.commentsErr != nil {
		return nil, m.commentsErr
	}
	return m.comments[number], nil
}

func (m *mockTracker) FetchReviews(_ context.Context, _ string, number int) ([]model.Review, error) {
	return m.reviews[number], nil
}

func (m *mockTracker) FetchLinkedPullRequests(_ context.Context, _ string, _ int) ([]model.PullRequest, error) {
	return m.linked, nil
}

func (m *mockTracker) GetLabel(_ context.Context, _ string, name string) (*model.Label, error) {
	if m.repoLabels[name] {
		return &model.Label{Name: name}, nil
	}
	return nil, nil
}

func (m *mockTracker) CreateLabel(_ context.Context, _ string, label model.Label) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.repoLabels[label.Name] = true
	m.labelCalls = append(m.labelCalls, labelCall{Op: "create", Name: label.Name})
	return nil
}

func (m *mockTracker) AddLabel(_ context.Context, _ string, _ int, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.labelCalls = append(m.labelCalls, labelCall{Op: "add", Name: name})
	return nil
}

func (m *mockTracker) RemoveLabel(_ context.Context, _ string, _ int, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.labelCalls = append(m.labelCalls, labelCall{Op: "remove", Name: name})
	return nil
}

func (m *mockTracker) CreateComment(_ context.Context, _ string, _ int, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.postErr != nil {
		return m.postErr
	}
	m.posted = append(m.posted, body)
	return nil
}

// --- Stores ---

type mockWallets struct {
	records map[string]model.WalletRecord
	err     error
	calls   int
}

func (m *mockWallets) GetWallet(_ context.Context, username string) (*model.WalletRecord, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	w, ok := m.records[strings.ToLower(username)]
	if !ok {
		return nil, nil
	}
	return &w, nil
}

func (m *mockWallets) SetAddress(_ context.Context, _, _ string) error { return nil }

func (m *mockWallets) SetMultiplier(_ context.Context, _ string, _ decimal.Decimal, _ string) error {
	return nil
}

func (m *mockWallets) Delete(_ context.Context, _ string) error { return nil }

func (m *mockWallets) ListAll(_ context.Context) ([]model.WalletRecord, error) { return nil, nil }

func walletsFor(addrs map[string]string) *mockWallets {
	m := &mockWallets{records: make(map[string]model.WalletRecord)}
	for user, addr := range addrs {
		m.records[strings.ToLower(user)] = model.WalletRecord{
			Username:   user,
			Address:    addr,
			Multiplier: decimal.NewFromInt(1),
		}
	}
	return m
}

type mockBots struct {
	usernames []string
}

func (m *mockBots) Add(_ context.Context, bot model.BotAccount) (model.BotAccount, error) {
	return bot, nil
}

func (m *mockBots) Remove(_ context.Context, _ string) error { return nil }

func (m *mockBots) ListAll(_ context.Context) ([]model.BotAccount, error) { return nil, nil }

func (m *mockBots) GetUsernames(_ context.Context) ([]string, error) { return m.usernames, nil }

type mockFallbacks struct {
	saved []model.FallbackReward
}

func (m *mockFallbacks) Save(_ context.Context, reward model.FallbackReward) (int64, error) {
	m.saved = append(m.saved, reward)
	return int64(len(m.saved)), nil
}

func (m *mockFallbacks) ListUnresolved(_ context.Context) ([]model.FallbackReward, error) {
	return m.saved, nil
}

func (m *mockFallbacks) Resolve(_ context.Context, _ int64) error { return nil }

type mockPermitLog struct {
	records []model.PermitRecord
}

func (m *mockPermitLog) Record(_ context.Context, rec model.PermitRecord) error {
	m.records = append(m.records, rec)
	return nil
}

func (m *mockPermitLog) List(_ context.Context, _ string, _ int) ([]model.PermitRecord, error) {
	return m.records, nil
}

// --- Signer ---

const testClaimPrefix = "https://pay.test?claim="

var testClaimValue = regexp.MustCompile(`^([^:\s)]+):([0-9]+)`)

// mockSigner encodes "recipient:nonce" directly in the claim URL.
type mockSigner struct {
	requests []driven.PermitRequest
	failFor  map[string]bool // Recipients whose signing fails.
}

func (m *mockSigner) Sign(_ context.Context, req driven.PermitRequest) (model.Permit, error) {
	m.requests = append(m.requests, req)
	if m.failFor[req.Recipient] {
		return model.Permit{}, errors.New("rpc unavailable")
	}
	nonce, _ := new(big.Int).SetString(m.NonceFor(req), 10)
	return model.Permit{
		Recipient:   req.Recipient,
		Amount:      req.Amount,
		TokenSymbol: "WXDAI",
		Nonce:       nonce,
		NetworkID:   100,
		ClaimURL:    fmt.Sprintf("%s%s:%s&network=100", testClaimPrefix, req.Recipient, nonce),
	}, nil
}

func (m *mockSigner) NonceFor(req driven.PermitRequest) string {
	return fmt.Sprint(crc32.ChecksumIEEE([]byte(req.Identifier + strings.ToLower(req.Recipient))))
}

func (m *mockSigner) ClaimPrefix() string { return testClaimPrefix }

func (m *mockSigner) DecodeClaims(text string) []model.Permit {
	var out []model.Permit
	for _, part := range strings.Split(text, testClaimPrefix)[1:] {
		match := testClaimValue.FindStringSubmatch(part)
		if match == nil {
			continue
		}
		nonce, _ := new(big.Int).SetString(match[2], 10)
		out = append(out, model.Permit{Recipient: match[1], Nonce: nonce})
	}
	return out
}

// --- Metrics ---

type mockRecorder struct {
	mu        sync.Mutex
	events    []string
	skips     []string
	permits   []model.RewardTitle
	fallbacks []model.RewardTitle
}

func (m *mockRecorder) EventHandled(kind, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, kind+":"+outcome)
}

func (m *mockRecorder) PayoutSkipped(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.skips = append(m.skips, reason)
}

func (m *mockRecorder) PermitIssued(title model.RewardTitle, _ decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.permits = append(m.permits, title)
}

func (m *mockRecorder) FallbackRecorded(title model.RewardTitle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fallbacks = append(m.fallbacks, title)
}

// --- Settings ---

type mockSettingsSource struct {
	overrides map[string]*model.SettingsOverride
	err       error
	requested []string
}

func (m *mockSettingsSource) FetchSettings(_ context.Context, repoFullName, _ string) (*model.SettingsOverride, error) {
	m.requested = append(m.requested, repoFullName)
	if m.err != nil {
		return nil, m.err
	}
	return m.overrides[repoFullName], nil
}

// --- Fixtures ---

func user(login string) model.User {
	return model.User{ID: int64(len(login)), Login: login, Type: model.UserTypeUser}
}

func botUser(login string) model.User {
	return model.User{Login: login, Type: model.UserTypeBot}
}

func comment(author model.User, html string) model.Comment {
	return model.Comment{Author: author, Body: html, BodyHTML: html}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type staticSettings struct {
	settings model.BotSettings
	err      error
}

func (s staticSettings) Load(_ context.Context, _ string) (model.BotSettings, error) {
	return s.settings, s.err
}

// testSettings prices one word at 1 and a code block at 5.
func testSettings() model.BotSettings {
	s := model.DefaultBotSettings()
	s.Incentives = model.IncentiveTable{
		Elements: map[string]decimal.Decimal{"code": dec("5")},
		Word:     dec("1"),
	}
	s.IncentiveMode = true
	return s
}

func issueNumbered(n int) model.Issue {
	return model.Issue{Number: n, RepoFullName: "o/r"}
}
