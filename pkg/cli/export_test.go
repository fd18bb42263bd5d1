package cli

var (
	SweepSchedules = sweepSchedules
	GetIndexConfig = getIndexConfig
)
