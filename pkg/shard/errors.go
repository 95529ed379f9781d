package shard

import (
	"fmt"

	"github.com/cuemby/persistsink/pkg/types"
)

// ConflictError is the benign Err(actual_upper) branch of
// compare_and_append_batch: some other writer advanced the shard past the
// expected lower. It is never fatal — the caller deletes its batches and
// the minter re-proposes from Actual.
type ConflictError struct {
	Actual types.Frontier
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("shard: compare-and-append conflict, current upper is %s", e.Actual)
}

// IndeterminateError wraps an outer Raft/Bolt failure: the commit's
// outcome could not be determined. This is always fatal.
type IndeterminateError struct {
	Cause error
}

func (e *IndeterminateError) Error() string {
	return fmt.Sprintf("shard: indeterminate commit outcome: %v", e.Cause)
}

func (e *IndeterminateError) Unwrap() error {
	return e.Cause
}
