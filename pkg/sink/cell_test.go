package sink

import (
	"testing"
	"time"

	"github.com/cuemby/persistsink/pkg/types"
)

func TestFrontierCellAdvanceWakesWaiters(t *testing.T) {
	c := newFrontierCell(types.MinFrontier())
	wake := c.Wait()

	c.Advance(types.At(5))

	select {
	case <-wake:
	case <-time.After(time.Second):
		t.Fatal("Advance did not close the wake channel")
	}

	if got := c.Get(); got != types.At(5) {
		t.Fatalf("Get() = %v, want {5}", got)
	}
}

func TestFrontierCellAdvanceIgnoresRegression(t *testing.T) {
	c := newFrontierCell(types.At(5))
	c.Advance(types.At(3))

	if got := c.Get(); got != types.At(5) {
		t.Fatalf("Get() = %v, want {5} (regression should be ignored)", got)
	}
}

func TestFrontierCellAdvanceToEmptyFromAnyValue(t *testing.T) {
	c := newFrontierCell(types.At(100))
	c.Advance(types.EmptyFrontier())

	if !c.Get().IsEmpty() {
		t.Fatal("expected cell to reach the empty frontier")
	}
}
