package session

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/filecoin-project/foc-uploader/api"
)

func TestTransitions(t *testing.T) {
	ok := [][2]api.Stage{
		{api.StageIdle, api.StagePreflighting},
		{api.StagePreflighting, api.StageAuthorizing},
		{api.StagePreflighting, api.StageResolvingDataset},
		{api.StagePreflighting, api.StageFailed},
		{api.StageAuthorizing, api.StageResolvingDataset},
		{api.StageResolvingDataset, api.StageUploading},
		{api.StageUploading, api.StageSucceeded},
		{api.StageUploading, api.StageFailed},
	}
	for _, tr := range ok {
		require.NoError(t, checkTransition(tr[0], tr[1]), "%s -> %s", tr[0], tr[1])
	}

	bad := [][2]api.Stage{
		{api.StageIdle, api.StageUploading},
		{api.StageIdle, api.StageFailed},
		{api.StageAuthorizing, api.StageUploading},
		{api.StageResolvingDataset, api.StageAuthorizing},
		{api.StageSucceeded, api.StagePreflighting},
		{api.StageFailed, api.StageIdle},
		{api.Stage("bogus"), api.StageIdle},
	}
	for _, tr := range bad {
		require.Error(t, checkTransition(tr[0], tr[1]), "%s -> %s", tr[0], tr[1])
	}

	require.True(t, Terminal(api.StageSucceeded))
	require.True(t, Terminal(api.StageFailed))
	require.False(t, Terminal(api.StageUploading))
}
