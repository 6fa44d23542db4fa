package interfaces

import "contract-orchestrator/internal/models"

// EventEmitter defines the interface for emitting confirmed operations
type EventEmitter interface {
	EmitEvent(event models.OperationEvent) error
}
