package events

import (
	"contract-orchestrator/internal/interfaces"
	"contract-orchestrator/internal/models"
	"fmt"

	"github.com/rs/zerolog"
)

// LoggingEmitter logs every operation event and forwards it to a wrapped emitter
type LoggingEmitter struct {
	WrappedEmitter interfaces.EventEmitter
	Logger         *zerolog.Logger
	// ExplorerURL is a block explorer tx URL prefix, e.g. https://sepolia.etherscan.io/tx/
	ExplorerURL string
}

// EmitEvent logs the event and forwards to the wrapped emitter
func (d *LoggingEmitter) EmitEvent(event models.OperationEvent) error {
	entry := d.Logger.Info().
		Str("contract", event.Contract.String()).
		Str("operation", event.Operation).
		Str("txHash", event.TxHash).
		Uint64("blockNumber", event.BlockNumber).
		Str("sender", event.Sender).
		Time("timestamp", event.Timestamp)
	if d.ExplorerURL != "" {
		entry = entry.Str("explorer", fmt.Sprintf("%s%s", d.ExplorerURL, event.TxHash))
	}
	entry.Msg("Operation confirmed")

	if d.WrappedEmitter != nil {
		return d.WrappedEmitter.EmitEvent(event)
	}
	return nil
}
