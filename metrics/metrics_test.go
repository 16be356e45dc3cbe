package metrics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opencensus.io/stats/view"
	"go.opencensus.io/tag"
)

func TestRecordWithTags(t *testing.T) {
	require.NoError(t, view.Register(SessionFinishedView))
	defer view.Unregister(SessionFinishedView)

	ctx := context.Background()
	Record(ctx, SessionFinished.M(1), tag.Upsert(Outcome, "succeeded"), tag.Upsert(Stage, "uploading"))
	Record(ctx, SessionFinished.M(1), tag.Upsert(Outcome, "failed"), tag.Upsert(Stage, "preflighting"))

	rows, err := view.RetrieveData(SessionFinishedView.Measure.Name())
	require.NoError(t, err)
	require.Len(t, rows, 2)
}

func TestDefaultViewsRegister(t *testing.T) {
	require.NoError(t, view.Register(DefaultViews...))
	view.Unregister(DefaultViews...)
}
