package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/bountybot/internal/domain/model"
)

func TestManager_Counters(t *testing.T) {
	m := NewManager()

	m.EventHandled("issues.closed", "ok")
	m.EventHandled("issues.closed", "ok")
	m.PayoutSkipped("no_wallet")
	m.PermitIssued(model.RewardTitleAssignee, decimal.RequireFromString("12.5"))
	m.PermitIssued(model.RewardTitleAssignee, decimal.RequireFromString("7.5"))
	m.FallbackRecorded(model.RewardTitleIssueComments)

	assert.InDelta(t, 2, testutil.ToFloat64(m.eventsHandled.WithLabelValues("issues.closed", "ok")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.payoutSkips.WithLabelValues("no_wallet")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.permitsIssued.WithLabelValues("Assignee")), 0)
	assert.InDelta(t, 20, testutil.ToFloat64(m.permitAmount.WithLabelValues("Assignee")), 0.0001)
	assert.InDelta(t, 1, testutil.ToFloat64(m.fallbacksRecorded.WithLabelValues("Issue-Comments")), 0)
}

func TestManager_HandlerExposesMetrics(t *testing.T) {
	m := NewManager()
	m.PayoutSkipped("not_completed")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `bountybot_payout_skips_total{reason="not_completed"} 1`)
}
