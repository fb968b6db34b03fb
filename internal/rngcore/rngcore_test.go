package rngcore

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHandle_SameSubsystemStreamIsDeterministic(t *testing.T) {
	c1 := New(42)
	c2 := New(42)
	h1 := c1.Handle(Physics, 1)
	h2 := c2.Handle(Physics, 1)
	for i := 0; i < 10; i++ {
		require.Equal(t, h1.NextU64("t"), h2.NextU64("t"))
	}
}

func TestHandle_DifferentSubsystemsAreIsolated(t *testing.T) {
	c := New(42)
	physics := c.Handle(Physics, 1).NextU64("t")
	biology := c.Handle(Biology, 1).NextU64("t")
	require.NotEqual(t, physics, biology)
}

func TestHandle_DifferentStreamIDsAreIsolated(t *testing.T) {
	c := New(42)
	s1 := c.Handle(Physics, 1).NextU64("t")
	s2 := c.Handle(Physics, 2).NextU64("t")
	require.NotEqual(t, s1, s2)
}

func TestHandle_DrawingFromOneStreamDoesNotAdvanceAnother(t *testing.T) {
	c1 := New(42)
	h1 := c1.Handle(Physics, 1)
	for i := 0; i < 5; i++ {
		h1.NextU64("burn")
	}
	wantNext := c1.Handle(Biology, 1).NextU64("t")

	c2 := New(42)
	gotNext := c2.Handle(Biology, 1).NextU64("t")
	require.Equal(t, wantNext, gotNext)
}

func TestNextInRange_StaysWithinBounds(t *testing.T) {
	c := New(7)
	h := c.Handle(Genetics, 0)
	for i := 0; i < 200; i++ {
		v := h.NextInRange(10, 20, "roll")
		require.GreaterOrEqual(t, v, uint64(10))
		require.Less(t, v, uint64(20))
	}
}

func TestNextInRange_PanicsOnEmptyRange(t *testing.T) {
	c := New(7)
	h := c.Handle(Genetics, 0)
	require.Panics(t, func() { h.NextInRange(5, 5, "roll") })
}

func TestNextF64_IsWithinUnitInterval(t *testing.T) {
	c := New(3)
	h := c.Handle(Cognition, 0)
	for i := 0; i < 50; i++ {
		f := h.NextF64("draw")
		require.GreaterOrEqual(t, f, 0.0)
		require.Less(t, f, 1.0)
	}
}

func TestAuditLog_RecordsEveryLoggedDraw(t *testing.T) {
	c := New(1)
	h := c.Handle(Physics, 0)
	c.SetTick(3)
	h.NextU64("alpha")
	h.NextF64("beta")
	log := c.AuditLog()
	require.Len(t, log, 2)
	require.Equal(t, uint64(3), log[0].Tick)
	require.Equal(t, "alpha", log[0].Callsite)
	require.Equal(t, Physics, log[0].Subsystem)
}

func TestAuditLog_RejectionSamplingOnlyLogsAcceptedValue(t *testing.T) {
	c := New(1)
	h := c.Handle(Physics, 0)
	h.NextInRange(0, 3, "roll")
	require.Len(t, c.AuditLog(), 1)
}

func TestNewBounded_KeepsOnlyRecentWindow(t *testing.T) {
	c := NewBounded(1, 3)
	h := c.Handle(Physics, 0)
	for i := 0; i < 10; i++ {
		h.NextU64("draw")
	}
	require.LessOrEqual(t, len(c.AuditLog()), 3)
}

func TestNewBounded_NeverGrowsTheUnboundedSlice(t *testing.T) {
	c := NewBounded(1, 3)
	h := c.Handle(Physics, 0)
	for i := 0; i < 1000; i++ {
		h.NextU64("draw")
	}
	require.Empty(t, c.audit, "bounded Core must never append to the unbounded audit slice")
	require.Equal(t, uint64(1000), c.drawCount)
	require.Equal(t, 1000, c.Stats().TotalDraws)
}

func TestNewBounded_PanicsOnInvalidSize(t *testing.T) {
	require.Panics(t, func() { NewBounded(1, 0) })
}

func TestExportPositions_IsSortedAndReflectsDrawCounts(t *testing.T) {
	c := New(5)
	c.Handle(Biology, 2).NextU64("a")
	c.Handle(Physics, 1).NextU64("a")
	c.Handle(Physics, 1).NextU64("b")

	positions := c.ExportPositions()
	require.Len(t, positions, 2)
	require.Equal(t, Physics, positions[0].Subsystem)
	require.Equal(t, uint64(2), positions[0].DrawCount)
	require.Equal(t, Biology, positions[1].Subsystem)
	require.Equal(t, uint64(1), positions[1].DrawCount)
}

func TestRestore_ContinuesStreamExactlyWhereItLeftOff(t *testing.T) {
	root := New(11)
	h := root.Handle(Physics, 0)
	h.NextU64("a")
	h.NextU64("b")

	positions := root.ExportPositions()
	restored := Restore(11, root.Stats().CurrentTick, positions)
	wantNext := h.NextU64("c")
	gotNext := restored.Handle(Physics, 0).NextU64("c")

	require.Equal(t, wantNext, gotNext)
}

func TestVerifyDeterminism_ComparesSeedAndTick(t *testing.T) {
	a := New(9)
	b := New(9)
	a.SetTick(5)
	b.SetTick(5)
	require.True(t, a.VerifyDeterminism(b))

	c := New(10)
	c.SetTick(5)
	require.False(t, a.VerifyDeterminism(c))
}

func TestStats_ReportsStreamCounts(t *testing.T) {
	c := New(1)
	c.Handle(Physics, 0).NextU64("a")
	c.Handle(Physics, 1).NextU64("a")
	c.Handle(Biology, 0).NextU64("a")

	stats := c.Stats()
	require.Equal(t, 3, stats.StreamCount)
	require.Equal(t, 3, stats.TotalDraws)
	require.Equal(t, 2, stats.StreamsBySubsys[Physics])
	require.Equal(t, 1, stats.StreamsBySubsys[Biology])
}
