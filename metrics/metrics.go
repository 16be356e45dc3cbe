package metrics

import (
	"context"
	"time"

	"go.opencensus.io/stats"
	"go.opencensus.io/stats/view"
	"go.opencensus.io/tag"

	"github.com/filecoin-project/foc-uploader/build"
)

// Distributions
var defaultMillisecondsDistribution = view.Distribution(
	1, 2, 5, 10, 20, 50, 100, 200, 500, // local or cached calls
	1000, 2000, 5000, 10_000, 20_000, 30_000, 60_000, // rpc calls and uploads
	2*60_000, 5*60_000, 10*60_000, 20*60_000, 30*60_000, // waiting on chain inclusion
)

var payloadSizeDistribution = view.Distribution(
	0, 1<<10, 16<<10, 64<<10, 256<<10, 1<<20, 4<<20, 16<<20, 64<<20, 200<<20,
)

// Tags
var (
	Version, _ = tag.NewKey("version")
	Commit, _  = tag.NewKey("commit")
	Network, _ = tag.NewKey("network")

	Stage, _   = tag.NewKey("stage")
	Outcome, _ = tag.NewKey("outcome")
	Source, _  = tag.NewKey("source")
)

// Measures
var (
	Info = stats.Int64("info", "Arbitrary counter to tag uploader info to", stats.UnitDimensionless)

	SessionStarted   = stats.Int64("session/started", "Upload sessions started", stats.UnitDimensionless)
	SessionFinished  = stats.Int64("session/finished", "Upload sessions that reached a terminal state", stats.UnitDimensionless)
	SessionDuration  = stats.Float64("session/duration_ms", "Duration of upload sessions", stats.UnitMilliseconds)
	StageDuration    = stats.Float64("session/stage_duration_ms", "Duration of individual session stages", stats.UnitMilliseconds)
	PayloadSize      = stats.Int64("session/payload_bytes", "Size of submitted payloads", stats.UnitBytes)
	BalanceSelected  = stats.Int64("funds/balance_selected", "Times a balance source was chosen as authoritative", stats.UnitDimensionless)
	ScaleAnomaly     = stats.Int64("funds/scale_anomaly", "Balances implausibly small for the requirement", stats.UnitDimensionless)
	DepositSubmitted = stats.Int64("payment/deposit_submitted", "Deposit transactions submitted", stats.UnitDimensionless)
	DepositRetried   = stats.Int64("payment/deposit_retried", "Deposits retried without the asset argument", stats.UnitDimensionless)
	DataSetCreated   = stats.Int64("dataset/created", "Data sets created", stats.UnitDimensionless)
)

var (
	InfoView = &view.View{
		Name:        "info",
		Description: "Uploader information",
		Measure:     Info,
		Aggregation: view.LastValue(),
		TagKeys:     []tag.Key{Version, Commit, Network},
	}
	SessionStartedView = &view.View{
		Measure:     SessionStarted,
		Aggregation: view.Count(),
	}
	SessionFinishedView = &view.View{
		Measure:     SessionFinished,
		Aggregation: view.Count(),
		TagKeys:     []tag.Key{Outcome, Stage},
	}
	SessionDurationView = &view.View{
		Measure:     SessionDuration,
		Aggregation: defaultMillisecondsDistribution,
		TagKeys:     []tag.Key{Outcome},
	}
	StageDurationView = &view.View{
		Measure:     StageDuration,
		Aggregation: defaultMillisecondsDistribution,
		TagKeys:     []tag.Key{Stage},
	}
	PayloadSizeView = &view.View{
		Measure:     PayloadSize,
		Aggregation: payloadSizeDistribution,
	}
	BalanceSelectedView = &view.View{
		Measure:     BalanceSelected,
		Aggregation: view.Count(),
		TagKeys:     []tag.Key{Source},
	}
	ScaleAnomalyView = &view.View{
		Measure:     ScaleAnomaly,
		Aggregation: view.Count(),
	}
	DepositSubmittedView = &view.View{
		Measure:     DepositSubmitted,
		Aggregation: view.Count(),
	}
	DepositRetriedView = &view.View{
		Measure:     DepositRetried,
		Aggregation: view.Count(),
	}
	DataSetCreatedView = &view.View{
		Measure:     DataSetCreated,
		Aggregation: view.Count(),
	}
)

// DefaultViews is an array of OpenCensus views for metric gathering purposes
var DefaultViews = []*view.View{
	InfoView,
	SessionStartedView,
	SessionFinishedView,
	SessionDurationView,
	StageDurationView,
	PayloadSizeView,
	BalanceSelectedView,
	ScaleAnomalyView,
	DepositSubmittedView,
	DepositRetriedView,
	DataSetCreatedView,
}

// SinceInMilliseconds returns the duration of time since the provide time as a float64.
func SinceInMilliseconds(startTime time.Time) float64 {
	return float64(time.Since(startTime).Nanoseconds()) / 1e6
}

// RecordInfo tags the info measure with build and network details.
func RecordInfo(ctx context.Context, network string) {
	ctx, _ = tag.New(ctx,
		tag.Upsert(Version, build.BuildVersion),
		tag.Upsert(Commit, build.CurrentCommit),
		tag.Upsert(Network, network),
	)
	stats.Record(ctx, Info.M(1))
}

// Record records m under the given tag mutators, ignoring tagging errors.
func Record(ctx context.Context, m stats.Measurement, mutators ...tag.Mutator) {
	_ = stats.RecordWithTags(ctx, mutators, m)
}
