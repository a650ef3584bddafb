// Package worker holds the background jobs run by coinpath-worker.
package worker

import (
	"context"
	"fmt"

	"coinpath/internal/amqp"
	"coinpath/internal/ledger"
	"coinpath/internal/log"
	"coinpath/internal/sheets"
)

// RemoteBackend is what the replay worker needs from the remote sheet.
type RemoteBackend interface {
	Name() string
	sheets.Loader
	sheets.Appender
}

// ReplayWorker pushes transactions that were saved locally to the remote
// backend.
type ReplayWorker struct {
	remote RemoteBackend
	logger *log.Logger
}

func NewReplayWorker(remote RemoteBackend, logger *log.Logger) *ReplayWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &ReplayWorker{remote: remote, logger: logger.WithComponent(log.ComponentWorker)}
}

// HandleReplay appends the carried transaction unless the remote already
// holds an identical row. An invalid payload is dropped; remote failures
// are returned so that the message is redelivered.
func (w *ReplayWorker) HandleReplay(ctx context.Context, msg *amqp.TransactionReplayMessage) error {
	tx, err := msg.Transaction()
	if err != nil {
		w.logger.WarnContext(ctx, "Dropping invalid replay message",
			log.FieldOperation, log.OpReplay,
			log.FieldRowRef, msg.LocalRef,
			log.FieldError, err)
		return nil
	}

	existing, err := w.remote.Load(ctx)
	if err != nil {
		return fmt.Errorf("load %s: %w", w.remote.Name(), err)
	}
	fields := log.NewFields().WithTransaction(tx).WithOperation(log.OpReplay)
	if ledger.Contains(existing, tx) {
		w.logger.InfoContext(ctx, "Replay skipped, row already present", fields.ToSlice()...)
		return nil
	}

	ref, err := w.remote.Append(ctx, tx)
	if err != nil {
		return fmt.Errorf("append to %s: %w", w.remote.Name(), err)
	}
	w.logger.InfoContext(ctx, "Replayed transaction",
		append(fields.ToSlice(), log.FieldBackend, w.remote.Name(), log.FieldRowRef, ref)...)
	return nil
}
