package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/bountybot/internal/domain/model"
)

const (
	timeDay        = "Time: <1 Day"
	priorityMedium = "Priority: 1 (Medium)"
	priceDayMedium = "Price: 2000 USD" // 1000 × 1 × 2
)

func pricingEvent(labels []string, body string) *EventContext {
	return &EventContext{
		Kind:     EventIssuesLabeled,
		Repo:     "o/r",
		Issue:    model.Issue{Number: 3, Labels: labels, Body: body},
		Settings: model.DefaultBotSettings(),
	}
}

func TestPricingService_SetsLabelThenIsIdempotent(t *testing.T) {
	tracker := newMockTracker()
	tracker.repoLabels[priceDayMedium] = true
	svc := NewPricingService(tracker, nil)

	msg, err := svc.Apply(context.Background(), pricingEvent([]string{timeDay, priorityMedium}, ""))
	require.NoError(t, err)
	assert.Equal(t, `Set price label "Price: 2000 USD".`, msg)
	assert.Equal(t, []labelCall{{Op: "add", Name: priceDayMedium}}, tracker.labelCalls)

	tracker.labelCalls = nil
	msg, err = svc.Apply(context.Background(), pricingEvent([]string{timeDay, priorityMedium, priceDayMedium}, ""))
	require.NoError(t, err)
	assert.Contains(t, msg, "already set")
	assert.Empty(t, tracker.labelCalls)
}

func TestPricingService_ReplacesStalePrice(t *testing.T) {
	tracker := newMockTracker()
	tracker.repoLabels[priceDayMedium] = true
	svc := NewPricingService(tracker, nil)

	_, err := svc.Apply(context.Background(), pricingEvent([]string{timeDay, priorityMedium, "Price: 1 USD"}, ""))

	require.NoError(t, err)
	assert.Equal(t, []labelCall{
		{Op: "remove", Name: "Price: 1 USD"},
		{Op: "add", Name: priceDayMedium},
	}, tracker.labelCalls)
}

func TestPricingService_AssistivePricingCreatesLabel(t *testing.T) {
	tracker := newMockTracker()
	svc := NewPricingService(tracker, nil)
	ev := pricingEvent([]string{timeDay, priorityMedium}, "")
	ev.Settings.AssistivePricing = true

	_, err := svc.Apply(context.Background(), ev)

	require.NoError(t, err)
	assert.Equal(t, []labelCall{
		{Op: "create", Name: priceDayMedium},
		{Op: "add", Name: priceDayMedium},
	}, tracker.labelCalls)
}

func TestPricingService_MissingLabelStillAttachedWithoutAssistivePricing(t *testing.T) {
	tracker := newMockTracker()
	svc := NewPricingService(tracker, nil)

	msg, err := svc.Apply(context.Background(), pricingEvent([]string{timeDay, priorityMedium, "Price: 1 USD"}, ""))

	require.NoError(t, err)
	assert.Equal(t, `Set price label "Price: 2000 USD".`, msg)
	assert.Equal(t, []labelCall{
		{Op: "remove", Name: "Price: 1 USD"},
		{Op: "add", Name: priceDayMedium},
	}, tracker.labelCalls)
}

func TestPricingService_TrackingIssueLosesPrice(t *testing.T) {
	tracker := newMockTracker()
	svc := NewPricingService(tracker, nil)
	body := "Tasks\n- [ ] #10\n- [ ] #11\n"

	msg, err := svc.Apply(context.Background(), pricingEvent([]string{timeDay, priorityMedium, priceDayMedium}, body))

	require.NoError(t, err)
	assert.Equal(t, "Removed price labels: Price: 2000 USD.", msg)
	assert.Equal(t, []labelCall{{Op: "remove", Name: priceDayMedium}}, tracker.labelCalls)
}

func TestPricingService_NoLabelsNoChange(t *testing.T) {
	tracker := newMockTracker()
	svc := NewPricingService(tracker, nil)

	msg, err := svc.Apply(context.Background(), pricingEvent([]string{"bug"}, ""))

	require.NoError(t, err)
	assert.Equal(t, "No price label applies to this issue.", msg)
	assert.Empty(t, tracker.labelCalls)
}
