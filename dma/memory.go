// Package dma implements the DMA memcpy tracing core: a descriptor
// encoder, a traced byte copier ("mtrace"), an operation-log byte copier
// ("mops"), a plain overlap-aware copier ("fast"), and the trace-buffer
// governor that grows a caller's trace region on demand.
//
// The package is pure and allocation-free on its hot paths: Encode,
// Mtrace's and Mops's copy loops, and Fast never allocate once their
// caller-supplied buffers exist. Memory, defined in this file, is the
// one collaborator that allocates, lazily, as pages are first touched.
package dma

import "encoding/binary"

// pageSize and pageShift define the granularity of on-demand allocation
// for Memory's sparse address space.
const (
	pageSize  = 4096
	pageShift = 12
	pageMask  = pageSize - 1
)

// Memory is a flat, sparsely-backed byte-addressable emulated memory.
// Pages are allocated on first touch; a Memory is not safe for
// concurrent use, since none of Encode, Mtrace, Mops, or Fast
// synchronize access to it themselves.
type Memory struct {
	pages map[uint64][]byte
}

// NewMemory returns an empty Memory.
func NewMemory() *Memory {
	return &Memory{pages: make(map[uint64][]byte)}
}

// Aligned returns addr with its low 3 bits cleared, i.e. the address of
// the qword containing addr.
func Aligned(addr uint64) uint64 {
	return addr &^ 0x7
}

func (m *Memory) page(addr uint64) []byte {
	idx := addr >> pageShift
	p, ok := m.pages[idx]
	if !ok {
		p = make([]byte, pageSize)
		m.pages[idx] = p
	}
	return p
}

func pageOffset(addr uint64) uint64 {
	return addr & pageMask
}

// ReadByte reads a single byte.
func (m *Memory) ReadByte(addr uint64) byte {
	return m.page(addr)[pageOffset(addr)]
}

// WriteByte writes a single byte.
func (m *Memory) WriteByte(addr uint64, v byte) {
	m.page(addr)[pageOffset(addr)] = v
}

// ReadQword reads 8 little-endian bytes starting at addr. addr need not
// be qword-aligned; callers that want the aligned qword containing an
// address pass Aligned(addr).
func (m *Memory) ReadQword(addr uint64) uint64 {
	off := pageOffset(addr)
	if off <= pageSize-8 {
		return binary.LittleEndian.Uint64(m.page(addr)[off:])
	}
	var buf [8]byte
	for i := uint64(0); i < 8; i++ {
		buf[i] = m.ReadByte(addr + i)
	}
	return binary.LittleEndian.Uint64(buf[:])
}

// WriteQword writes v as 8 little-endian bytes starting at addr.
func (m *Memory) WriteQword(addr uint64, v uint64) {
	off := pageOffset(addr)
	if off <= pageSize-8 {
		binary.LittleEndian.PutUint64(m.page(addr)[off:], v)
		return
	}
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	for i := uint64(0); i < 8; i++ {
		m.WriteByte(addr+i, buf[i])
	}
}

// LoadBytes writes a contiguous byte slice into memory starting at base,
// for seeding test fixtures.
func (m *Memory) LoadBytes(base uint64, data []byte) {
	for i, b := range data {
		m.WriteByte(base+uint64(i), b)
	}
}

// Bytes reads n contiguous bytes starting at addr into a fresh slice,
// for verifying copy results in tests.
func (m *Memory) Bytes(addr uint64, n int) []byte {
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		out[i] = m.ReadByte(addr + uint64(i))
	}
	return out
}

// PageCount returns the number of pages allocated so far.
func (m *Memory) PageCount() int {
	return len(m.pages)
}

// Reset discards all allocated pages.
func (m *Memory) Reset() {
	m.pages = make(map[uint64][]byte)
}
