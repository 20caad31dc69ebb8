package dma

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func fillPattern(mem *Memory, base uint64, n int, start byte) {
	data := make([]byte, n)
	for i := range data {
		data[i] = start + byte(i)
	}
	mem.LoadBytes(base, data)
}

func TestFast_ForwardNoOverlap(t *testing.T) {
	mem := NewMemory()
	fillPattern(mem, 0x1000, 64, 1)

	Fast(0x2000, 0x1000, 37, mem)

	require.Equal(t, mem.Bytes(0x1000, 37), mem.Bytes(0x2000, 37))
}

func TestFast_OverlapForward(t *testing.T) {
	// dst = src + 8: classic forward-overlap case.
	mem := NewMemory()
	fillPattern(mem, 0x1000, 64, 1)
	want := mem.Bytes(0x1000, 40)

	Fast(0x1008, 0x1000, 40, mem)

	got := mem.Bytes(0x1008, 40)
	require.Equal(t, want, got, "overlapping forward copy must preserve source-at-entry bytes")
}

func TestFast_OverlapBackward(t *testing.T) {
	// dst = src - 8: destination precedes source, no backward move needed
	// since src < dst is false here; exercises the forward qword path over
	// overlapping, qword-aligned ranges.
	mem := NewMemory()
	fillPattern(mem, 0x1000, 64, 1)
	want := mem.Bytes(0x1008, 40)

	Fast(0x1000, 0x1008, 40, mem)

	got := mem.Bytes(0x1000, 40)
	require.Equal(t, want, got)
}

func TestFast_NoOverlapEdge(t *testing.T) {
	// dst = src + count: buffers are exactly adjacent, not overlapping.
	mem := NewMemory()
	fillPattern(mem, 0x1000, 64, 7)
	want := mem.Bytes(0x1000, 24)

	Fast(0x1018, 0x1000, 24, mem)

	got := mem.Bytes(0x1018, 24)
	require.Equal(t, want, got)
}

func TestFast_UnalignedOffsets(t *testing.T) {
	for dstOff := uint64(0); dstOff < 8; dstOff++ {
		for srcOff := uint64(0); srcOff < 8; srcOff++ {
			for _, count := range []uint64{0, 1, 5, 7, 8, 9, 15, 16, 17, 63, 100} {
				mem := NewMemory()
				dst := 0x4000 + dstOff
				src := 0x8000 + srcOff // far enough apart to never overlap
				fillPattern(mem, src, int(count)+8, 3)
				want := mem.Bytes(src, int(count))

				Fast(dst, src, count, mem)

				got := mem.Bytes(dst, int(count))
				require.Equal(t, want, got,
					"dstOff=%d srcOff=%d count=%d", dstOff, srcOff, count)
			}
		}
	}
}
