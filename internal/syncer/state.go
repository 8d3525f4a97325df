package syncer

// State is the lifecycle phase of the sync engine
type State int32

const (
	StateStopped State = iota
	StateInitializing
	StateBackfilling
	StateLive
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateInitializing:
		return "initializing"
	case StateBackfilling:
		return "backfilling"
	case StateLive:
		return "live"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}
