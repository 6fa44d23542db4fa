package emitters

import (
	"contract-orchestrator/internal/interfaces"
	"contract-orchestrator/internal/models"
	"errors"
)

var _ interfaces.EventEmitter = Fanout(nil)

// Fanout delivers every event to each emitter in order. A failing emitter
// does not stop the others; their errors are joined.
type Fanout []interfaces.EventEmitter

func (f Fanout) EmitEvent(event models.OperationEvent) error {
	var errs []error
	for _, e := range f {
		if err := e.EmitEvent(event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
