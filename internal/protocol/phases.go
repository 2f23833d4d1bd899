// internal/protocol/phases.go
package protocol

// PhaseStatusTypes maps the backend's phase vocabulary to status type names.
// The backend contract here is partially inferred, so the mapping is data
// rather than a switch; unknown phases fall back to DefaultPhaseStatusType.
var PhaseStatusTypes = map[string]string{
	"analyzing":  "analyzing",
	"analysis":   "analyzing",
	"generating": "generating",
	"generation": "generating",
	"thinking":   "thinking",
	"reasoning":  "reasoning",
}

// DefaultPhaseStatusType is used for phases outside the known vocabulary
const DefaultPhaseStatusType = "processing"

// StatusTypeForPhase resolves a backend phase name to a status type
func StatusTypeForPhase(phase string) string {
	if statusType, ok := PhaseStatusTypes[phase]; ok {
		return statusType
	}
	return DefaultPhaseStatusType
}
