package dma

import "errors"

// ErrTraceTooSmall is returned by Mtrace when the caller-supplied trace
// buffer cannot hold the words this call must write. In the real
// pipeline the governor (governor.go) guarantees this never happens;
// this check exists because a Go caller expects an error rather than an
// out-of-bounds panic at the one boundary where external buffer sizing
// enters the package.
var ErrTraceTooSmall = errors.New("dma: trace buffer too small")

// TraceLen returns the number of words Mtrace will write for a given
// descriptor: 1 (the descriptor itself) + (pre_count>0) + (post_count>0)
// + loop_count + extra_src_reads.
func TraceLen(descriptor uint64) int {
	f := Decode(descriptor)
	n := 1 + int(f.LoopCount) + int(f.ExtraSrcReads)
	if f.PreCount > 0 {
		n++
	}
	if f.PostCount > 0 {
		n++
	}
	return n
}

// Mtrace performs a traced byte copy: it emits the descriptor, the
// destination's pre- and post-images, and every aligned source qword
// the copy touches, then performs the copy itself. All trace reads
// (destination pre-images and every source word) complete before any
// write to dst begins, which is what makes the trace a faithful record
// of overlapping copies: the physical copy may still clobber source
// bytes as it proceeds, but the trace already holds the pre-copy
// values.
//
// trace must have room for TraceLen(Encode(dst, src, count)) words;
// ErrTraceTooSmall is returned otherwise. mem is not touched on error.
func Mtrace(dst, src, count uint64, mem *Memory, trace []uint64) (int, error) {
	descriptor := Encode(dst, src, count)
	want := TraceLen(descriptor)
	if len(trace) < want {
		return 0, ErrTraceTooSmall
	}

	f := Decode(descriptor)
	n := 0
	trace[n] = descriptor
	n++

	if f.PreCount > 0 {
		trace[n] = mem.ReadQword(Aligned(dst))
		n++
	}
	if f.PostCount > 0 {
		trace[n] = mem.ReadQword(Aligned(dst + count - 1))
		n++
	}

	totalSrcWords := int(f.LoopCount) + int(f.ExtraSrcReads)
	if totalSrcWords > 0 {
		firstQ := Aligned(src)
		for i := 0; i < totalSrcWords; i++ {
			trace[n] = mem.ReadQword(firstQ + uint64(i)*8)
			n++
		}
	}

	copyEngine(mem, dst, src, count)

	return n, nil
}
