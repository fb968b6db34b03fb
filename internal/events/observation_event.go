package events

// ObservationKind discriminates ObservationEvent.Payload.
type ObservationKind uint8

const (
	// ObservationStateChange records a committed mutation.
	ObservationStateChange ObservationKind = iota
	// ObservationWorldHash is the terminal per-tick checkpoint.
	ObservationWorldHash
	// ObservationRejectionReason records a pipeline-stage denial.
	ObservationRejectionReason
	// ObservationActionNoted records an action that reached Commit but
	// produced no state change (Chat, ToolUse, Wait).
	ObservationActionNoted
)

// PipelineStage names the authority pipeline pass that produced a
// rejection, for RejectionReason observations.
type PipelineStage uint8

const (
	StageSchemaValidate PipelineStage = iota
	StageAuthorize
	StagePerceive
	StageIntent
	StageVolition
	StageBioVeto
	StagePhysicsValidate
	StagePolicyValidate
	StageCommit
	StageEmit
)

// String names a stage for observation payloads and log fields.
func (s PipelineStage) String() string {
	switch s {
	case StageSchemaValidate:
		return "SchemaValidate"
	case StageAuthorize:
		return "Authorize"
	case StagePerceive:
		return "Perceive"
	case StageIntent:
		return "Intent"
	case StageVolition:
		return "Volition"
	case StageBioVeto:
		return "BioVeto"
	case StagePhysicsValidate:
		return "PhysicsValidate"
	case StagePolicyValidate:
		return "PolicyValidate"
	case StageCommit:
		return "Commit"
	case StageEmit:
		return "Emit"
	default:
		return "Unknown"
	}
}

// ObservationEvent is derived state, never mutated after emission.
type ObservationEvent struct {
	ID           uint64
	Tick         uint64
	CauseEventID uint64
	HasCause     bool

	Payload ObservationKind

	// StateChange
	Path   string
	OldVal string
	NewVal string

	// WorldHash
	WorldHashTick uint64
	WorldHash     [32]byte

	// RejectionReason
	Stage  PipelineStage
	Reason string

	// ActionNoted
	NoteAction string
}

// StateChange builds a StateChange observation.
func StateChange(id, tick, cause uint64, path, oldVal, newVal string) ObservationEvent {
	return ObservationEvent{
		ID: id, Tick: tick, CauseEventID: cause, HasCause: true,
		Payload: ObservationStateChange, Path: path, OldVal: oldVal, NewVal: newVal,
	}
}

// WorldHash builds the terminal per-tick WorldHash observation.
func WorldHash(id, tick uint64, hash [32]byte) ObservationEvent {
	return ObservationEvent{
		ID: id, Tick: tick, Payload: ObservationWorldHash,
		WorldHashTick: tick, WorldHash: hash,
	}
}

// RejectionReason builds a RejectionReason observation.
func RejectionReason(id, tick, cause uint64, stage PipelineStage, reason string) ObservationEvent {
	return ObservationEvent{
		ID: id, Tick: tick, CauseEventID: cause, HasCause: true,
		Payload: ObservationRejectionReason, Stage: stage, Reason: reason,
	}
}

// ActionNoted builds an ActionNoted observation for committed no-ops.
func ActionNoted(id, tick, cause uint64, note string) ObservationEvent {
	return ObservationEvent{
		ID: id, Tick: tick, CauseEventID: cause, HasCause: true,
		Payload: ObservationActionNoted, NoteAction: note,
	}
}
