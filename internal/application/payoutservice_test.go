package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/bountybot/internal/domain/model"
	"github.com/ericfisherdev/bountybot/internal/domain/port/driven"
)

type payoutFixture struct {
	tracker   *mockTracker
	wallets   *mockWallets
	bots      *mockBots
	signer    *mockSigner
	permitLog *mockPermitLog
	recorder  *mockRecorder
	svc       *PayoutService
}

func newPayoutFixture(wallets *mockWallets) *payoutFixture {
	f := &payoutFixture{
		tracker:   newMockTracker(),
		wallets:   wallets,
		bots:      &mockBots{usernames: []string{"ubiquibot"}},
		signer:    &mockSigner{failFor: map[string]bool{}},
		permitLog: &mockPermitLog{},
		recorder:  &mockRecorder{},
	}
	attribution := NewAttributionService(f.tracker, f.wallets, f.bots, &mockFallbacks{}, f.recorder, nil)
	permits := NewPermitService(f.signer, f.permitLog, f.recorder, nil)
	f.svc = NewPayoutService(f.tracker, f.wallets, f.bots, attribution, permits, f.recorder, nil)
	return f
}

func TestHandleIssueClosed_IssuesAssigneePermit(t *testing.T) {
	f := newPayoutFixture(walletsFor(map[string]string{"alice": addrAlice}))
	f.wallets.records["alice"] = model.WalletRecord{Username: "alice", Address: addrAlice, Multiplier: dec("1.5")}

	msg, err := f.svc.HandleIssueClosed(context.Background(), closedEvent(closedBounty()))

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(msg, "### [ **[ CLAIM 37.5 WXDAI ]** ]("+testClaimPrefix), msg)
	assert.Contains(t, msg, model.ShortenAddress(addrAlice))

	require.Len(t, f.signer.requests, 1)
	assert.Equal(t, addrAlice, f.signer.requests[0].Recipient)
	assert.Equal(t, "37.5", f.signer.requests[0].Amount.String())
	assert.Equal(t, "I_kwDOissue1", f.signer.requests[0].Identifier)

	assert.Equal(t, []labelCall{
		{Op: "remove", Name: "Price: 25 USD"},
		{Op: "create", Name: PermittedLabel},
		{Op: "add", Name: PermittedLabel},
	}, f.tracker.labelCalls)

	require.Len(t, f.permitLog.records, 1)
	assert.Equal(t, model.RewardTitleAssignee, f.permitLog.records[0].Title)
	assert.Equal(t, "alice", f.permitLog.records[0].Username)
	assert.Equal(t, []model.RewardTitle{model.RewardTitleAssignee}, f.recorder.permits)
}

func TestHandleIssueClosed_Gates(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*EventContext, *payoutFixture)
		reason  string
		message string
	}{
		{
			name:    "not completed",
			mutate:  func(ev *EventContext, _ *payoutFixture) { ev.Issue.StateReason = model.StateReasonNotPlanned },
			reason:  "not_completed",
			message: "not closed as completed",
		},
		{
			name:    "auto pay off",
			mutate:  func(ev *EventContext, _ *payoutFixture) { ev.Settings.AutoPayMode = false },
			reason:  "auto_pay_disabled",
			message: "auto-pay mode is off",
		},
		{
			name:    "not a bounty",
			mutate:  func(ev *EventContext, _ *payoutFixture) { ev.Issue.Labels = []string{"bug"} },
			reason:  "not_bounty",
			message: "not a bounty",
		},
		{
			name:    "no assignee",
			mutate:  func(ev *EventContext, _ *payoutFixture) { ev.Issue.Assignees = nil },
			reason:  "no_assignee",
			message: "no assignee",
		},
		{
			name:    "zero price",
			mutate:  func(ev *EventContext, _ *payoutFixture) { ev.Issue.Labels = []string{"Price: 0 USD"} },
			reason:  "no_price_label",
			message: "no valid price label",
		},
		{
			name:    "no wallet",
			mutate:  func(_ *EventContext, f *payoutFixture) { delete(f.wallets.records, "alice") },
			reason:  "no_wallet",
			message: "@alice has no wallet address on file. Register one by commenting `/wallet 0xYourAddress`.",
		},
		{
			name: "zero multiplier",
			mutate: func(_ *EventContext, f *payoutFixture) {
				f.wallets.records["alice"] = model.WalletRecord{Username: "alice", Address: addrAlice, Multiplier: dec("0")}
			},
			reason:  "zero_multiplier",
			message: "multiplier for @alice is 0",
		},
		{
			name:    "over max price",
			mutate:  func(ev *EventContext, _ *payoutFixture) { ev.Settings.PaymentPermitMaxPrice = dec("10") },
			reason:  "over_max_price",
			message: "25 exceeds the maximum permit price of 10",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newPayoutFixture(walletsFor(map[string]string{"alice": addrAlice}))
			ev := closedEvent(closedBounty())
			tt.mutate(ev, f)

			msg, err := f.svc.HandleIssueClosed(context.Background(), ev)

			require.NoError(t, err)
			assert.Contains(t, msg, tt.message)
			assert.Equal(t, []string{tt.reason}, f.recorder.skips)
			assert.Empty(t, f.signer.requests, "signer must not be called")
			assert.Empty(t, f.tracker.labelCalls)
		})
	}
}

func TestHandleIssueClosed_ExistingBotClaimBlocksSecondPermit(t *testing.T) {
	f := newPayoutFixture(walletsFor(map[string]string{"alice": addrAlice}))
	f.tracker.comments[1] = []model.Comment{
		comment(user("ubiquibot"), fmt.Sprintf("[CLAIM](%s%s:1&network=100)", testClaimPrefix, addrAlice)),
	}

	msg, err := f.svc.HandleIssueClosed(context.Background(), closedEvent(closedBounty()))

	require.NoError(t, err)
	assert.Contains(t, msg, "already posted")
	assert.Equal(t, []string{"already_posted"}, f.recorder.skips)
	assert.Empty(t, f.signer.requests)
}

func TestHandleIssueClosed_HumanClaimLinkDoesNotBlock(t *testing.T) {
	f := newPayoutFixture(walletsFor(map[string]string{"alice": addrAlice}))
	f.tracker.comments[1] = []model.Comment{
		comment(user("mallory"), testClaimPrefix+addrAlice+":1"),
	}

	_, err := f.svc.HandleIssueClosed(context.Background(), closedEvent(closedBounty()))

	require.NoError(t, err)
	assert.Len(t, f.signer.requests, 1)
}

func TestHandleIssueClosed_SignFailureIsReturned(t *testing.T) {
	f := newPayoutFixture(walletsFor(map[string]string{"alice": addrAlice}))
	f.signer.failFor[addrAlice] = true

	_, err := f.svc.HandleIssueClosed(context.Background(), closedEvent(closedBounty()))

	require.Error(t, err)
	assert.Empty(t, f.tracker.labelCalls)
	assert.Empty(t, f.permitLog.records)
}

func TestHandleIssueClosed_WalletErrorIsReturned(t *testing.T) {
	f := newPayoutFixture(&mockWallets{err: errors.New("db closed")})

	_, err := f.svc.HandleIssueClosed(context.Background(), closedEvent(closedBounty()))

	require.Error(t, err)
	assert.Empty(t, f.signer.requests)
}

func TestHandleIncentives_PerRecipientOutcomes(t *testing.T) {
	f := newPayoutFixture(walletsFor(map[string]string{
		"alice": addrAlice,
		"bob":   addrBob,
		"carol": addrCarol,
		"dave":  addrDave,
	}))
	f.signer.failFor[addrCarol] = true
	f.tracker.comments[1] = []model.Comment{
		comment(user("bob"), "<p>one two three</p>"),
		comment(user("carol"), "<p>four five</p>"),
		comment(user("dan"), "<p>x y</p>"),
	}

	msg, err := f.svc.HandleIncentives(context.Background(), closedEvent(closedBounty()))

	require.NoError(t, err)
	assert.Contains(t, msg, "#### Issue-Comments")
	assert.Contains(t, msg, "### [ **bob: [ CLAIM 3 WXDAI ]** ](")
	assert.Contains(t, msg, "@carol: permit generation failed")
	assert.Contains(t, msg, "| @dan | 2 |")
	assert.Contains(t, msg, "#### Issue-Creation")
	assert.Contains(t, msg, "### [ **dave: [ CLAIM 4 WXDAI ]** ](")
	assert.NotContains(t, msg, "#### Review-Reviewer")

	assert.Len(t, f.signer.requests, 3)
	for _, req := range f.signer.requests {
		if req.Recipient == addrBob {
			assert.Equal(t, "I_kwDOissue1Issue-Comments", req.Identifier)
		}
	}
}

func TestHandleIncentives_SkipsAlreadyPaidRecipient(t *testing.T) {
	f := newPayoutFixture(walletsFor(map[string]string{"bob": addrBob}))
	nonce := f.signer.NonceFor(driven.PermitRequest{Recipient: addrBob, Identifier: "I_kwDOissue1Issue-Comments"})
	f.tracker.comments[1] = []model.Comment{
		comment(user("bob"), "<p>one two three</p>"),
		comment(user("ubiquibot"), fmt.Sprintf("[claim](%s%s:%s&network=100)", testClaimPrefix, addrBob, nonce)),
	}
	ev := closedEvent(closedBounty())
	ev.Issue.Author = user("alice")

	msg, err := f.svc.HandleIncentives(context.Background(), ev)

	require.NoError(t, err)
	assert.Contains(t, msg, "@bob: a permit was already posted.")
	assert.Empty(t, f.signer.requests)
}

func TestHandleIncentives_NoAssigneePaysNobody(t *testing.T) {
	f := newPayoutFixture(walletsFor(map[string]string{"bob": addrBob, "dave": addrDave}))
	f.tracker.comments[1] = []model.Comment{comment(user("bob"), "<p>one two three</p>")}
	ev := closedEvent(closedBounty())
	ev.Issue.Assignees = nil
	ev.Issue.Labels = nil

	msg, err := f.svc.HandleIncentives(context.Background(), ev)

	require.NoError(t, err)
	assert.Empty(t, msg)
	assert.Empty(t, f.signer.requests)
	assert.Empty(t, f.permitLog.records)
}

func TestHandleIncentives_Disabled(t *testing.T) {
	f := newPayoutFixture(walletsFor(map[string]string{"bob": addrBob}))
	f.tracker.comments[1] = []model.Comment{comment(user("bob"), "<p>hello</p>")}

	ev := closedEvent(closedBounty())
	ev.Settings.IncentiveMode = false
	msg, err := f.svc.HandleIncentives(context.Background(), ev)
	require.NoError(t, err)
	assert.Empty(t, msg)

	ev = closedEvent(closedBounty())
	ev.Issue.StateReason = model.StateReasonNotPlanned
	msg, err = f.svc.HandleIncentives(context.Background(), ev)
	require.NoError(t, err)
	assert.Empty(t, msg)

	assert.Empty(t, f.signer.requests)
}

func TestHandleIncentives_PassErrorBecomesSection(t *testing.T) {
	f := newPayoutFixture(walletsFor(nil))
	ev := closedEvent(closedBounty())
	ev.Issue.BodyHTML = ""
	f.tracker.fetchErr = errors.New("502")

	msg, err := f.svc.HandleIncentives(context.Background(), ev)

	require.NoError(t, err)
	assert.Contains(t, msg, "#### Issue-Creation\nRewards could not be computed")
}

func TestRenderClaim(t *testing.T) {
	p := model.Permit{
		Recipient:   addrAlice,
		Amount:      dec("12.5"),
		TokenSymbol: "DAI",
		ClaimURL:    "https://pay.test?claim=abc",
	}

	assert.Equal(t,
		"### [ **[ CLAIM 12.5 DAI ]** ](https://pay.test?claim=abc)\n```\n0xA11C...0001\n```",
		RenderClaim(p))
	assert.Equal(t,
		"### [ **bob: [ CLAIM 12.5 DAI ]** ](https://pay.test?claim=abc)",
		RenderUserClaim("bob", p))
}
