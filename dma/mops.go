package dma

import "errors"

// OpKind tags the kind of aligned memory access an op-descriptor
// records.
type OpKind uint8

// Op-descriptor tag values, placed at bits 32-35 of an op-descriptor.
const (
	OpAlignedRead      OpKind = 0x0C
	OpAlignedBlockRead OpKind = 0x0E
	OpAlignedBlockWrite OpKind = 0x0F
)

// ExtraParameterAddr is the fixed emulator-reserved pseudo-address mops
// uses to record the count argument. It never overlaps real memory.
const ExtraParameterAddr uint64 = 0xA000_0F00

const (
	opAddrBits  = 32
	opKindShift = 32
	opKindBits  = 4
	opLenShift  = 36
)

// OpDescriptor packs an aligned address, a kind tag, and a block word
// count into a single 64-bit op-descriptor.
func OpDescriptor(kind OpKind, addr uint64, blockWords uint64) uint64 {
	return (addr & mask(opAddrBits)) | (uint64(kind) << opKindShift) | (blockWords << opLenShift)
}

// DecodeOpDescriptor unpacks an op-descriptor back into its fields.
func DecodeOpDescriptor(op uint64) (kind OpKind, addr uint32, blockWords uint64) {
	kind = OpKind(getField(op, opKindShift, opKindBits))
	addr = uint32(op & mask(opAddrBits))
	blockWords = op >> opLenShift
	return kind, addr, blockWords
}

// ErrOpsTooSmall is returned by Mops when the caller-supplied op-log
// buffer cannot hold the entries this call must write.
var ErrOpsTooSmall = errors.New("dma: mops buffer too small")

// MopsLen returns the number of op-descriptors Mops will write for a
// given (dst, src, count).
func MopsLen(count uint64, descriptor uint64) int {
	if count == 0 {
		return 1
	}
	f := Decode(descriptor)
	n := 1 + 1 // parameter read + block write
	if f.PreCount > 0 {
		n += 2
	}
	if f.PostCount > 0 {
		n += 2
	}
	if f.LoopCount > 0 {
		n++
	}
	return n
}

// Mops performs the same copy as Fast but records a sequence of aligned
// memory-access descriptors instead of data.
//
// ops must have room for MopsLen(count, Encode(dst, src, count))
// entries; ErrOpsTooSmall is returned otherwise. mem is not touched on
// error.
func Mops(dst, src, count uint64, mem *Memory, ops []uint64) (int, error) {
	descriptor := Encode(dst, src, count)
	want := MopsLen(count, descriptor)
	if len(ops) < want {
		return 0, ErrOpsTooSmall
	}

	n := 0
	ops[n] = OpDescriptor(OpAlignedRead, ExtraParameterAddr, 0)
	n++

	if count == 0 {
		return n, nil
	}

	f := Decode(descriptor)
	preCount := uint64(f.PreCount)
	postCount := uint64(f.PostCount)
	loopCount := uint64(f.LoopCount)

	if preCount > 0 {
		ops[n] = OpDescriptor(OpAlignedRead, Aligned(dst), 0)
		n++

		srcKind, srcLen := OpAlignedRead, uint64(0)
		if f.DoubleSrcPre {
			srcKind, srcLen = OpAlignedBlockRead, 2
		}
		ops[n] = OpDescriptor(srcKind, Aligned(src), srcLen)
		n++
	}

	if postCount > 0 {
		ops[n] = OpDescriptor(OpAlignedRead, Aligned(dst+count-1), 0)
		n++

		srcKind, srcLen := OpAlignedRead, uint64(0)
		if f.DoubleSrcPost {
			srcKind, srcLen = OpAlignedBlockRead, 2
		}
		postSrcAddr := src + preCount + 8*loopCount
		ops[n] = OpDescriptor(srcKind, Aligned(postSrcAddr), srcLen)
		n++
	}

	if loopCount > 0 {
		blockLen := loopCount + boolBit(f.UnalignedSrc)
		ops[n] = OpDescriptor(OpAlignedBlockRead, Aligned(src+preCount), blockLen)
		n++
	}

	ops[n] = OpDescriptor(OpAlignedBlockWrite, Aligned(dst), loopCount+uint64(f.PreWrites))
	n++

	copyEngine(mem, dst, src, count)

	return n, nil
}
