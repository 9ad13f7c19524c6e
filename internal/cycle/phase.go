package cycle

// Phase is where the active cycle currently is. Idle means no cycle is
// running.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseFetching
	PhaseFiltering
	PhaseSelectingCandidate
	PhaseDownloading
	PhaseMaterializing
	PhaseApplying
	PhaseReconciling
)

var phaseNames = [...]string{
	"idle",
	"fetching",
	"filtering",
	"selecting_candidate",
	"downloading",
	"materializing",
	"applying",
	"reconciling",
}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return "unknown"
	}
	return phaseNames[p]
}
