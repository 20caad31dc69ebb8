package dma

import "sync"

// Descriptor bit layout (little-endian, bit 0 least significant). This is
// a wire contract consumed by downstream state machines; the field
// widths and positions must never change.
const (
	preCountShift  = 0
	preCountBits   = 3
	postCountShift = 3
	postCountBits  = 3
	preWritesShift = 6
	preWritesBits  = 2
	dstOffShift    = 8
	dstOffBits     = 3
	srcOffShift    = 11
	srcOffBits     = 3
	doubleSrcPreBit  = 14
	doubleSrcPostBit = 15
	extraSrcShift    = 16
	extraSrcBits     = 2
	src64IncBit      = 18
	unalignedBit     = 19
	preCountDupShift = 29
	preCountDupBits  = 3
	loopCountShift   = 32
	loopCountBits    = 32
)

func mask(bits uint) uint64 { return (uint64(1) << bits) - 1 }

func setField(d uint64, shift uint, bits uint, v uint64) uint64 {
	return d | ((v & mask(bits)) << shift)
}

func getField(d uint64, shift uint, bits uint) uint64 {
	return (d >> shift) & mask(bits)
}

func boolBit(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

// offsetFlags holds the portion of the descriptor that depends only on
// dst_offset, src_offset, and count's low bits: pre_count, post_count,
// pre_writes and the three pre/post source flags. The offsets
// themselves and unaligned_dst_src are computed directly in Encode, as
// are loop_count and extra_src_reads, which need the full count.
type offsetFlags struct {
	preCount      uint8
	postCount     uint8
	preWrites     uint8
	doubleSrcPre  bool
	doubleSrcPost bool
	src64IncByPre bool
}

// offsetFlagsTable is a small precomputed table indexed by (dst_offset,
// src_offset, table_count_lo) where table_count_lo = count if count < 16
// else 8|(count mod 8). The table only needs to hold fields that are
// fully determined by those three inputs; loop_count (which needs the
// full count) is computed arithmetically after the lookup. Built once,
// lazily, on first Encode call.
var (
	offsetFlagsTable     [8][8][16]offsetFlags
	offsetFlagsTableOnce sync.Once
)

func tableCountLo(count uint64) uint64 {
	if count < 16 {
		return count
	}
	return 8 | (count % 8)
}

func buildOffsetFlagsTable() {
	for dstOff := uint64(0); dstOff < 8; dstOff++ {
		for srcOff := uint64(0); srcOff < 8; srcOff++ {
			for lo := uint64(0); lo < 16; lo++ {
				offsetFlagsTable[dstOff][srcOff][lo] = computeOffsetFlags(dstOff, srcOff, lo)
			}
		}
	}
}

// computeOffsetFlags derives the table entry for a representative count
// equal to tableCountLo's own domain value (lo itself, since lo < 16
// already is a valid standalone count covering every case the
// pre/post/flags computation can distinguish). Collisions with larger
// counts sharing the same lo are harmless: once count exceeds the
// pre-alignment gap, pre_count/post_count/the flag bits only ever depend
// on count mod 8, which lo already reproduces exactly.
func computeOffsetFlags(dstOff, srcOff, lo uint64) offsetFlags {
	pre, _, post := splitCount(dstOff, lo)
	preWrites := boolBit(pre > 0) + boolBit(post > 0)
	srcAfterPre := (srcOff + pre) % 8
	return offsetFlags{
		preCount:      uint8(pre),
		postCount:     uint8(post),
		preWrites:     uint8(preWrites),
		doubleSrcPre:  srcOff+pre > 8,
		doubleSrcPost: srcAfterPre+post > 8,
		src64IncByPre: pre > 0 && srcOff+pre >= 8,
	}
}

// splitCount decomposes a single (dst_offset, count) pair into the
// leading unaligned bytes, the aligned qword loop, and the trailing
// unaligned bytes.
func splitCount(dstOff, count uint64) (pre, loop, post uint64) {
	switch {
	case dstOff > 0 && (8-dstOff) < count:
		pre = 8 - dstOff
		rest := count - pre
		loop = rest / 8
		post = rest % 8
	case dstOff > 0:
		pre = count
	default:
		loop = count / 8
		post = count % 8
	}
	return pre, loop, post
}

// Encode derives the 64-bit descriptor for a (dst, src, count) memcpy.
// It is a pure function, constant-time relative to count: no per-byte
// loop, just a table lookup plus O(1) arithmetic. count must be < 2^31;
// behavior is undefined (and unchecked) otherwise — the caller is
// responsible for bounding count.
func Encode(dst, src, count uint64) uint64 {
	offsetFlagsTableOnce.Do(buildOffsetFlagsTable)

	dstOff := dst % 8
	srcOff := src % 8
	lo := tableCountLo(count)
	f := offsetFlagsTable[dstOff][srcOff][lo]

	_, loopCount, _ := splitCount(dstOff, count)

	var extraSrcReads uint64
	if count > 0 {
		firstQ := src / 8
		lastQ := (src + count - 1) / 8
		extraSrcReads = (lastQ - firstQ + 1) - loopCount
	}

	var d uint64
	d = setField(d, preCountShift, preCountBits, uint64(f.preCount))
	d = setField(d, postCountShift, postCountBits, uint64(f.postCount))
	d = setField(d, preWritesShift, preWritesBits, uint64(f.preWrites))
	d = setField(d, dstOffShift, dstOffBits, dstOff)
	d = setField(d, srcOffShift, srcOffBits, srcOff)
	d |= boolBit(f.doubleSrcPre) << doubleSrcPreBit
	d |= boolBit(f.doubleSrcPost) << doubleSrcPostBit
	d = setField(d, extraSrcShift, extraSrcBits, extraSrcReads)
	d |= boolBit(f.src64IncByPre) << src64IncBit
	d |= boolBit(dstOff != srcOff) << unalignedBit
	d = setField(d, preCountDupShift, preCountDupBits, uint64(f.preCount))
	d = setField(d, loopCountShift, loopCountBits, loopCount)

	return d
}

// DecodedFields exposes every field of the descriptor bit layout,
// giving the Encoder a symmetric decoder for downstream consumers and
// for round-trip tests.
type DecodedFields struct {
	PreCount      uint8
	PostCount     uint8
	PreWrites     uint8
	DstOffset     uint8
	SrcOffset     uint8
	DoubleSrcPre  bool
	DoubleSrcPost bool
	ExtraSrcReads uint8
	Src64IncByPre bool
	UnalignedSrc  bool
	LoopCount     uint32
}

// Decode unpacks a descriptor produced by Encode back into its fields.
func Decode(d uint64) DecodedFields {
	return DecodedFields{
		PreCount:      uint8(getField(d, preCountShift, preCountBits)),
		PostCount:     uint8(getField(d, postCountShift, postCountBits)),
		PreWrites:     uint8(getField(d, preWritesShift, preWritesBits)),
		DstOffset:     uint8(getField(d, dstOffShift, dstOffBits)),
		SrcOffset:     uint8(getField(d, srcOffShift, srcOffBits)),
		DoubleSrcPre:  (d>>doubleSrcPreBit)&1 != 0,
		DoubleSrcPost: (d>>doubleSrcPostBit)&1 != 0,
		ExtraSrcReads: uint8(getField(d, extraSrcShift, extraSrcBits)),
		Src64IncByPre: (d>>src64IncBit)&1 != 0,
		UnalignedSrc:  (d>>unalignedBit)&1 != 0,
		LoopCount:     uint32(getField(d, loopCountShift, loopCountBits)),
	}
}
