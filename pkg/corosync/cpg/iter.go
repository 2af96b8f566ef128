package cpg

import (
	"context"
	"iter"

	"github.com/corosync/corosync-go/pkg/corosync"
	"github.com/corosync/corosync-go/pkg/corosync/internal/backend"
	"github.com/corosync/corosync-go/pkg/corosync/logging"
	"github.com/corosync/corosync-go/pkg/corosync/metrics"
)

// Iterator walks the records of a group iteration. It owns a native cursor
// that is released exactly once. An Iterator is not safe for concurrent use.
type Iterator struct {
	eng    backend.CpgEngine
	cursor uint64
	log    logging.Logger

	rec  IterationRecord
	err  error
	done bool
}

// IterationStart opens an iteration of kind typ. group names the group for
// IterOneGroup and IterNameOnly and is ignored for IterAll.
func (h *Handle) IterationStart(group string, typ IterationType) (*Iterator, error) {
	const op = "cpg_iteration_initialize"
	v, ok := typ.native()
	if !ok {
		return nil, corosync.InvalidParam(op, "unknown iteration type %d", int(typ))
	}
	var namePtr *backend.CpgName
	if typ != IterAll {
		name, err := groupName(op, group)
		if err != nil {
			return nil, err
		}
		namePtr = &name
	}

	var cursor uint64
	err := h.call(op, func() corosync.CsError {
		var code corosync.CsError
		cursor, code = h.eng.IterationInitialize(h.raw, v, namePtr)
		return code
	})
	if err != nil {
		return nil, err
	}
	return &Iterator{eng: h.eng, cursor: cursor, log: h.logger()}, nil
}

// Next advances to the next record. It returns false when the sequence is
// exhausted or a failure occurred; the cursor is released in both cases and
// Err reports the failure.
func (it *Iterator) Next() bool {
	const op = "cpg_iteration_next"
	if it.done {
		return false
	}
	var desc backend.CpgIterationDescription
	code := it.eng.IterationNext(it.cursor, &desc)
	metrics.ObserveCall(subsystem, op, code.Error())
	switch code {
	case corosync.CsOK:
		it.rec = recordFromNative(&desc)
		return true
	case corosync.CsErrNoSections:
	default:
		it.err = corosync.Check(op, code)
	}
	if err := it.release(); err != nil {
		it.log.Debug(context.Background(), "iteration cursor cleanup failed", "err", err)
	}
	return false
}

// Record returns the record Next moved to.
func (it *Iterator) Record() IterationRecord {
	return it.rec
}

// Err returns the failure that ended the iteration, if any. Exhaustion is
// not a failure.
func (it *Iterator) Err() error {
	return it.err
}

// Close releases the cursor if the sequence has not ended yet and returns
// the outcome of that release. Closing a finished Iterator returns nil.
func (it *Iterator) Close() error {
	return it.release()
}

// All returns the remaining records as a sequence. The iterator is closed
// when the sequence ends or the loop stops early.
func (it *Iterator) All() iter.Seq[IterationRecord] {
	return func(yield func(IterationRecord) bool) {
		defer it.Close()
		for it.Next() {
			if !yield(it.rec) {
				return
			}
		}
	}
}

func (it *Iterator) release() error {
	const op = "cpg_iteration_finalize"
	if it.done {
		return nil
	}
	it.done = true
	code := it.eng.IterationFinalize(it.cursor)
	metrics.ObserveCall(subsystem, op, code.Error())
	if err := corosync.Check(op, code); err != nil {
		metrics.IterationCleanupFailures.Inc()
		return err
	}
	return nil
}
