//go:build integration

package anomaly

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carbonledger/internal/anomaly"
	"carbonledger/pkg/testutil/containers"
)

const anomalyDDL = `
CREATE TABLE IF NOT EXISTS anomaly_records (
    id              TEXT PRIMARY KEY,
    rule_id         TEXT NOT NULL,
    severity        TEXT NOT NULL,
    subject_type    TEXT NOT NULL,
    subject_id      TEXT NOT NULL,
    message         TEXT NOT NULL,
    fix_hint        TEXT NOT NULL,
    details         JSONB,
    status          TEXT NOT NULL,
    resolution_note TEXT NOT NULL DEFAULT '',
    created_at      TIMESTAMPTZ NOT NULL,
    updated_at      TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS anomaly_scans (
    id           TEXT PRIMARY KEY,
    started_at   TIMESTAMPTZ NOT NULL,
    completed_at TIMESTAMPTZ NOT NULL,
    upserted     INT NOT NULL,
    rules_failed INT NOT NULL
)`

func testRecord(now time.Time) anomaly.Record {
	return anomaly.Record{
		ID:          anomaly.DeterministicID("missing_provenance", "measured_value", "mv-1"),
		RuleID:      "missing_provenance",
		Severity:    anomaly.SeverityHigh,
		SubjectType: "measured_value",
		SubjectID:   "mv-1",
		Message:     "measured value has no supporting evidence",
		FixHint:     "link at least one evidence fragment",
		Details:     map[string]string{"entity_id": "mv-1", "field_key": "emissions_tco2e"},
		Status:      anomaly.StatusOpen,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func TestPostgresAnomalyStore(t *testing.T) {
	ctx := context.Background()
	pg := containers.NewPostgresContainer(t)
	pg.Exec(t, anomalyDDL)

	st := anomaly.NewPostgresStore(pg.DB)
	now := time.Now().UTC().Truncate(time.Microsecond)

	t.Run("first upsert reports a change", func(t *testing.T) {
		changed, err := st.Upsert(ctx, testRecord(now))
		require.NoError(t, err)
		assert.True(t, changed)
	})

	t.Run("identical upsert reports no change", func(t *testing.T) {
		record := testRecord(now)
		record.UpdatedAt = now.Add(time.Minute)
		changed, err := st.Upsert(ctx, record)
		require.NoError(t, err)
		assert.False(t, changed)
	})

	t.Run("changed message reports a change and keeps status", func(t *testing.T) {
		got, err := st.SetStatus(ctx, testRecord(now).ID, anomaly.StatusResolved, "handled")
		require.NoError(t, err)
		require.NotNil(t, got)

		record := testRecord(now)
		record.Message = "reworded finding"
		record.Severity = anomaly.SeverityLow
		changed, err := st.Upsert(ctx, record)
		require.NoError(t, err)
		assert.True(t, changed)

		after, err := st.Get(ctx, record.ID)
		require.NoError(t, err)
		require.NotNil(t, after)
		assert.Equal(t, "reworded finding", after.Message)
		assert.Equal(t, anomaly.SeverityHigh, after.Severity, "severity is fixed at creation")
		assert.Equal(t, anomaly.StatusResolved, after.Status)
		assert.Equal(t, "handled", after.ResolutionNote)
	})

	t.Run("set status on unknown id returns nil", func(t *testing.T) {
		got, err := st.SetStatus(ctx, "anm_missing", anomaly.StatusIgnored, "")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("list orders by severity then recency", func(t *testing.T) {
		low := testRecord(now)
		low.ID = anomaly.DeterministicID("stale_scan", "scan", "anomaly_scan")
		low.RuleID = "stale_scan"
		low.Severity = anomaly.SeverityLow
		low.SubjectType = "scan"
		low.SubjectID = "anomaly_scan"
		low.Details = nil
		_, err := st.Upsert(ctx, low)
		require.NoError(t, err)

		records, err := st.List(ctx, anomaly.ListFilter{})
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, anomaly.SeverityHigh, records[0].Severity)
		assert.Equal(t, anomaly.SeverityLow, records[1].Severity)

		open, err := st.List(ctx, anomaly.ListFilter{Status: anomaly.StatusOpen})
		require.NoError(t, err)
		require.Len(t, open, 1)
		assert.Equal(t, low.ID, open[0].ID)
	})

	t.Run("scan history returns the latest run", func(t *testing.T) {
		first, err := st.LastScan(ctx)
		require.NoError(t, err)
		assert.Nil(t, first)

		require.NoError(t, st.RecordScan(ctx, anomaly.ScanRun{
			ID: "scan_1", StartedAt: now, CompletedAt: now.Add(time.Second), Upserted: 2,
		}))
		require.NoError(t, st.RecordScan(ctx, anomaly.ScanRun{
			ID: "scan_2", StartedAt: now.Add(time.Hour), CompletedAt: now.Add(time.Hour + time.Second), Upserted: 0,
		}))

		last, err := st.LastScan(ctx)
		require.NoError(t, err)
		require.NotNil(t, last)
		assert.Equal(t, "scan_2", last.ID)
	})
}
