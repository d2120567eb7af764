package telemetry

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScopedAPI(t *testing.T) {
	recorder := NewRecorderAPI()
	scoped := NewScopedAPI("pipeline", NewScopedAPI("item", recorder))

	scoped.ReportWarning("skip", "id1")
	scoped.ReportBroken("ledger", "err")
	scoped.ReportCount("succeeded", 3)
	scoped.ReportDebug("hello")

	require.Len(t, recorder.Reports(SeverityWarning, "item.pipeline.skip"), 1)
	require.Equal(t, []any{"id1"}, recorder.Reports(SeverityWarning, "item.pipeline.skip")[0].Params)
	require.Len(t, recorder.Reports(SeverityBroken, "item.pipeline.ledger"), 1)
	require.Equal(t, int64(3), recorder.Reports(SeverityCount, "item.pipeline.succeeded")[0].Count)
	require.Len(t, recorder.Reports(SeverityDebug, "item: pipeline: hello"), 1)
	require.Len(t, recorder.All(), 4)
}
