package model

// WindowDays is the trailing window over which executions are counted and ranked.
const WindowDays = 30

// RankKind selects how recent queries are ranked against each other.
type RankKind int

const (
	// RankFrequent ranks query texts by number of executions.
	RankFrequent RankKind = iota
	// RankLongest ranks query texts by mean elapsed time.
	RankLongest
	// RankHeaviest ranks query texts by mean bytes scanned.
	RankHeaviest
)

func (k RankKind) String() string {
	switch k {
	case RankFrequent:
		return "frequent"
	case RankLongest:
		return "longest"
	case RankHeaviest:
		return "heaviest"
	default:
		return "unknown"
	}
}

// ExecStats summarises the executions of one query text over the trailing window.
type ExecStats struct {
	Count        int64
	TotalSeconds float64
}
