package session

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/filecoin-project/foc-uploader/api"
)

func TestProgressNeverDecreases(t *testing.T) {
	p := newProgressStream()

	var got []int
	unsub := p.feed.subscribe(func(st api.ProgressState) {
		got = append(got, st.Percent)
	})

	p.report(api.StagePreflighting, 5, "a")
	p.report(api.StageAuthorizing, 30, "b")
	p.report(api.StageResolvingDataset, 20, "late milestone")
	p.report(api.StageUploading, 150, "overflow")

	unsub()
	p.report(api.StageSucceeded, 100, "done")

	require.Equal(t, []int{5, 30, 30, 100}, got)

	hist := p.snapshot()
	require.Len(t, hist, 5)
	require.Equal(t, "late milestone", hist[2].Message)
	require.Equal(t, 30, hist[2].Percent)

	last, ok := p.latest()
	require.True(t, ok)
	require.Equal(t, api.StageSucceeded, last.Stage)
}

func TestProgressEmpty(t *testing.T) {
	p := newProgressStream()
	_, ok := p.latest()
	require.False(t, ok)
	require.Empty(t, p.snapshot())
}
