// Package coordinator drives a fixed set of migration transactions through
// an execute/commit/rollback protocol so that either all of them commit or
// a rollback is attempted on every one.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"

	"tx-coordinator/internal/pkg/logger"
)

// TxCoordinator fans each phase out across its participants, aggregates the
// outcomes and routes the whole group to commit or rollback.
//
// Three goroutines cooperate per run, one per phase, gated by channels:
//
//   - the execute aggregator signals commitGate on universal success and
//     abortGate on any failure; deciding to roll back closes commitGate
//     without a value, which the commit phase reads as "do not proceed"
//   - the commit aggregator signals doneGate on universal success and
//     abortGate on any failure
//   - the rollback aggregator drains abortGate, sweeps every participant
//     and signals doneGate after a clean sweep
//
// abortGate is closed once both producers have returned, letting the
// rollback aggregator exit; doneGate is closed when the rollback aggregator
// exits. The outer call returns success on the first doneGate value or on
// its closure.
type TxCoordinator struct {
	txs []Tx
}

// New builds a coordinator over an immutable participant list.
func New(txs []Tx) *TxCoordinator {
	return &TxCoordinator{txs: txs}
}

// CommitOrRollback runs the protocol to a terminal state: every participant
// committed, or a rollback attempted on every participant. Per-participant
// errors are logged with their id and collapsed into per-phase verdicts;
// the returned error is nil for both terminal states.
func (c *TxCoordinator) CommitOrRollback(ctx context.Context) error {
	ctx = logger.WithRunID(ctx, uuid.NewString())

	commitGate := make(chan struct{}, 1)
	abortGate := make(chan struct{}, 2)
	doneGate := make(chan struct{}, 2)

	// Producers on abortGate: the execute and commit aggregators. Closing
	// abortGate after both return is the channel-close rendering of
	// dropping the last sender.
	var producers sync.WaitGroup
	producers.Add(2)

	go func() {
		defer producers.Done()
		defer close(commitGate)

		if err := c.fanOut(ctx, "execute", Tx.Execute); err != nil {
			logger.Instance.Info(ctx, "execute phase failed, requesting rollback", logger.Error(err))
			abortGate <- struct{}{}
			return
		}
		commitGate <- struct{}{}
	}()

	go func() {
		defer producers.Done()

		if _, ok := <-commitGate; !ok {
			logger.Instance.Debug(ctx, "commit gate closed without signal, skipping commit phase")
			return
		}

		logger.Instance.Info(ctx, "prepare commit")
		if err := c.fanOut(ctx, "commit", Tx.Commit); err != nil {
			logger.Instance.Warn(ctx, "commit phase failed, requesting rollback", logger.Error(err))
			abortGate <- struct{}{}
			return
		}
		doneGate <- struct{}{}
	}()

	go func() {
		producers.Wait()
		close(abortGate)
	}()

	go func() {
		defer close(doneGate)

		for range abortGate {
			logger.Instance.Info(ctx, "prepare rollback")
			if err := c.fanOut(ctx, "rollback", Tx.Rollback); err != nil {
				// best-effort abort: the verdict is unchanged, the
				// terminal state is conveyed by closing doneGate
				logger.Instance.Warn(ctx, "rollback sweep finished with errors", logger.Error(err))
				continue
			}
			doneGate <- struct{}{}
		}
	}()

	if _, ok := <-doneGate; ok {
		logger.Instance.Info(ctx, "coordinator reached terminal state")
	} else {
		logger.Instance.Info(ctx, "coordinator reached terminal state without signal")
	}
	return nil
}

// fanOut runs op on every participant concurrently and waits for all of
// them; it never short-circuits, so no transaction handle is re-entered
// while a phase is still in flight. A panicking sub-task counts as that
// participant's error. The per-participant errors are collapsed into a
// single phase verdict.
func (c *TxCoordinator) fanOut(ctx context.Context, phase string, op func(Tx, context.Context) error) error {
	errs := make(chan error, len(c.txs))

	var wg sync.WaitGroup
	for _, tx := range c.txs {
		wg.Add(1)
		go func(tx Tx) {
			defer wg.Done()
			defer func() {
				if p := recover(); p != nil {
					err := fmt.Errorf("tx[%s] %s panicked: %v", tx.ID(), phase, p)
					logger.Instance.Error(ctx, "participant panicked",
						logger.String("phase", phase), logger.String("id", tx.ID()), logger.Error(err))
					errs <- err
				}
			}()

			if err := op(tx, ctx); err != nil {
				if errors.Is(err, ErrTxFinalized) {
					// redundant sweep over an already terminal participant
					logger.Instance.Debug(ctx, "participant already finalized",
						logger.String("phase", phase), logger.String("id", tx.ID()))
				} else {
					logger.Instance.Warn(ctx, "participant failed",
						logger.String("phase", phase), logger.String("id", tx.ID()), logger.Error(err))
				}
				errs <- fmt.Errorf("tx[%s] %s: %w", tx.ID(), phase, err)
				return
			}
			logger.Instance.Info(ctx, "participant succeeded",
				logger.String("phase", phase), logger.String("id", tx.ID()))
		}(tx)
	}
	wg.Wait()
	close(errs)

	var result *multierror.Error
	for err := range errs {
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}
