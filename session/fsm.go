package session

import (
	"golang.org/x/xerrors"

	"github.com/filecoin-project/foc-uploader/api"
)

var fsmTransitions = map[api.Stage][]api.Stage{
	api.StageIdle:         {api.StagePreflighting},
	api.StagePreflighting: {api.StageAuthorizing, api.StageResolvingDataset, api.StageFailed},
	api.StageAuthorizing:  {api.StageResolvingDataset, api.StageFailed},
	api.StageResolvingDataset: {
		api.StageUploading,
		api.StageFailed,
	},
	api.StageUploading: {api.StageSucceeded, api.StageFailed},
	api.StageSucceeded: final,
	api.StageFailed:    final,
}

var final []api.Stage

// Terminal reports whether no transition leaves st.
func Terminal(st api.Stage) bool {
	next, ok := fsmTransitions[st]
	return ok && len(next) == 0
}

func checkTransition(from, to api.Stage) error {
	next, ok := fsmTransitions[from]
	if !ok {
		return xerrors.Errorf("unknown session state %q", from)
	}
	for _, st := range next {
		if st == to {
			return nil
		}
	}
	return xerrors.Errorf("invalid session transition %s -> %s", from, to)
}
