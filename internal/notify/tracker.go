package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"liquidityStaker/internal/contracts"
	"liquidityStaker/internal/model"
)

// ErrReverted is returned when a mined transaction has a failed status.
var ErrReverted = errors.New("transaction reverted")

// Confirmer waits for a transaction to be mined.
type Confirmer interface {
	WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error)
}

// SubmitFunc sends a transaction.
type SubmitFunc func(ctx context.Context) (*types.Transaction, error)

// Tracker wraps a transaction submission with pending, success and error notifications.
type Tracker struct {
	sink      Sink
	confirmer Confirmer
	txURL     func(hash string) string
	logger    *zap.Logger
	newID     func() string
}

// NewTracker builds a tracker. txURL may be nil.
func NewTracker(sink Sink, confirmer Confirmer, txURL func(hash string) string, logger *zap.Logger) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if txURL == nil {
		txURL = func(string) string { return "" }
	}
	return &Tracker{
		sink:      sink,
		confirmer: confirmer,
		txURL:     txURL,
		logger:    logger,
		newID:     func() string { return uuid.NewString() },
	}
}

// Tx submits a transaction, shows it as pending and waits for it to be mined
// without a deadline of its own. It shows success and returns the receipt, or
// shows the failure and returns the error.
func (t *Tracker) Tx(ctx context.Context, pending, success string, submit SubmitFunc) (*types.Receipt, error) {
	id := t.newID()

	tx, err := submit(ctx)
	if err != nil {
		t.notify(model.TxError{ID: id, Message: errorMessage(err)})
		return nil, fmt.Errorf("submit %s: %w", pending, err)
	}
	hash := tx.Hash().Hex()
	t.notify(model.TxPending{ID: id, Description: pending, Hash: hash, ExplorerURL: t.txURL(hash)})
	t.logger.Debug("waiting for transaction", zap.String("tx_hash", hash))

	receipt, err := t.confirmer.WaitMined(ctx, tx)
	if err != nil {
		t.notify(model.TxError{ID: id, Message: errorMessage(err)})
		return nil, fmt.Errorf("wait for %s: %w", hash, err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		err := fmt.Errorf("%w: %s", ErrReverted, hash)
		t.notify(model.TxError{ID: id, Message: err.Error()})
		return receipt, err
	}

	t.notify(model.TxSuccess{
		ID:      id,
		Title:   success,
		Message: fmt.Sprintf("confirmed in block %v", receipt.BlockNumber),
		Hash:    hash,
	})
	return receipt, nil
}

func (t *Tracker) notify(n model.Notification) {
	if t.sink != nil {
		t.sink.Notify(n)
	}
}

func errorMessage(err error) string {
	if reason, ok := contracts.RevertReason(err); ok && reason != "" {
		return reason
	}
	return err.Error()
}
