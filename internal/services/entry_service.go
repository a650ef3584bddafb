// Package services orchestrates the ledger store with the replay queue.
package services

import (
	"context"
	"fmt"

	"coinpath/internal/amqp"
	"coinpath/internal/core"
	"coinpath/internal/entry"
	"coinpath/internal/ledger"
	"coinpath/internal/log"
)

// Publisher queues a transaction for replay against the remote backend.
// *amqp.Client satisfies it.
type Publisher interface {
	PublishReplay(ctx context.Context, msg *amqp.TransactionReplayMessage) error
	Close() error
}

// EntryService records transactions and schedules a remote replay for
// every write that landed on the local fallback.
type EntryService struct {
	store     *ledger.Store
	publisher Publisher
	logger    *log.Logger
}

// NewEntryService creates the service. publisher may be nil.
func NewEntryService(store *ledger.Store, publisher Publisher, logger *log.Logger) *EntryService {
	if logger == nil {
		logger = log.Discard()
	}
	return &EntryService{
		store:     store,
		publisher: publisher,
		logger:    logger.WithComponent(log.ComponentEntry),
	}
}

func (s *EntryService) Store() *ledger.Store { return s.store }

// Submit validates the draft against the taxonomy and records the result.
func (s *EntryService) Submit(ctx context.Context, d entry.Draft, tax entry.Taxonomy) (ledger.Receipt, error) {
	tx, err := entry.Build(d, tax)
	if err != nil {
		return ledger.Receipt{}, err
	}
	return s.Record(ctx, tx)
}

// Record appends tx to the store. A publish failure is logged and does not
// fail the call: the transaction is already saved locally.
func (s *EntryService) Record(ctx context.Context, tx core.Transaction) (ledger.Receipt, error) {
	rc, err := s.store.Append(ctx, tx)
	if err != nil {
		return rc, err
	}

	fields := log.NewFields().WithTransaction(tx).WithOperation(log.OpAppend)
	s.logger.InfoContext(ctx, "Transaction recorded",
		append(fields.ToSlice(), log.FieldBackend, rc.Backend, log.FieldRowRef, rc.Ref, log.FieldFellBack, rc.FellBack)...)

	if rc.FellBack {
		if err := s.publishReplay(ctx, tx, rc); err != nil {
			s.logger.ErrorContext(ctx, "Failed to publish replay message",
				log.FieldOperation, log.OpReplay,
				log.FieldRowRef, rc.Ref,
				log.FieldError, err)
		}
	}
	return rc, nil
}

func (s *EntryService) publishReplay(ctx context.Context, tx core.Transaction, rc ledger.Receipt) error {
	if s.publisher == nil {
		s.logger.WarnContext(ctx, "Replay queue not configured, remote copy must be restored by import",
			log.FieldRowRef, rc.Ref)
		return nil
	}
	return s.publisher.PublishReplay(ctx, amqp.NewTransactionReplayMessage(tx, rc.Backend, rc.Ref))
}

// Close releases the publisher.
func (s *EntryService) Close() error {
	if s.publisher == nil {
		return nil
	}
	if err := s.publisher.Close(); err != nil {
		return fmt.Errorf("close entry service: %w", err)
	}
	return nil
}
