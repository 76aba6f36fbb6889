package syncer

// State : phase courante de la session d'affichage.
type State int

const (
	Idle State = iota
	Locating
	Resolving
	Fetching
	SyncingStructured
	SyncingFallback
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Locating:
		return "locating"
	case Resolving:
		return "resolving"
	case Fetching:
		return "fetching"
	case SyncingStructured:
		return "syncing_structured"
	case SyncingFallback:
		return "syncing_fallback"
	default:
		return "unknown"
	}
}

// Syncing indique si un poll d'affichage tourne dans cet état.
func (s State) Syncing() bool {
	return s == SyncingStructured || s == SyncingFallback
}
