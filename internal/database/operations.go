package database

import (
	"context"
	"contract-orchestrator/internal/interfaces"
	"contract-orchestrator/internal/models"
	"time"
)

var _ interfaces.EventEmitter = (*DB)(nil)

const emitTimeout = 5 * time.Second

// Operation is a confirmed operation as stored in the ledger
type Operation struct {
	ID          int64               `json:"id"`
	Contract    models.ContractName `json:"contract"`
	Operation   string              `json:"operation"`
	TxHash      string              `json:"txHash"`
	BlockNumber uint64              `json:"blockNumber"`
	Sender      string              `json:"sender"`
	ConfirmedAt time.Time           `json:"confirmedAt"`
}

// EmitEvent saves a confirmed operation, ignoring repeats of the same tx
func (db *DB) EmitEvent(event models.OperationEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), emitTimeout)
	defer cancel()
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO operations (contract, operation, tx_hash, block_number, sender, confirmed_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (tx_hash) DO NOTHING
	`, event.Contract.String(), event.Operation, event.TxHash, int64(event.BlockNumber), event.Sender, event.Timestamp)
	return err
}

// ListOperations returns the newest operations first; contract filters when set
func (db *DB) ListOperations(ctx context.Context, contract models.ContractName, limit, offset int) ([]Operation, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, contract, operation, tx_hash, block_number, sender, confirmed_at
		FROM operations
		WHERE $1::text = '' OR contract = $1::text
		ORDER BY confirmed_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`, contract.String(), limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var operations []Operation
	for rows.Next() {
		var op Operation
		var block int64
		if err := rows.Scan(&op.ID, &op.Contract, &op.Operation, &op.TxHash, &block, &op.Sender, &op.ConfirmedAt); err != nil {
			return nil, err
		}
		op.BlockNumber = uint64(block)
		operations = append(operations, op)
	}
	return operations, rows.Err()
}
