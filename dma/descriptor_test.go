package dma

import "testing"

// A handful of concrete offset/count combinations chosen to exercise
// every boolean flag at least once. dst/src here are plain addresses
// whose low 3 bits equal the scenario's stated offsets; the higher bits
// are chosen arbitrarily (0x1000) to make sure Encode is exercised on
// offsets derived from a real address, not just a bare 0-7 value.
func TestEncode_SpecScenarios(t *testing.T) {
	const base = 0x1000

	cases := []struct {
		name                 string
		dstOff, srcOff       uint64
		count                uint64
		wantPre, wantLoop    uint64
		wantPost             uint64
		wantDoubleSrcPre     bool
		wantDoubleSrcPost    bool
		wantUnalignedDstSrc  bool
		wantSrc64IncByPre    bool
	}{
		{name: "A", dstOff: 0, srcOff: 0, count: 0, wantPre: 0, wantLoop: 0, wantPost: 0},
		{name: "B", dstOff: 0, srcOff: 0, count: 8, wantPre: 0, wantLoop: 1, wantPost: 0},
		{name: "C", dstOff: 7, srcOff: 0, count: 1, wantPre: 1, wantLoop: 0, wantPost: 0, wantUnalignedDstSrc: true},
		{
			name: "D", dstOff: 3, srcOff: 5, count: 10,
			wantPre: 5, wantLoop: 0, wantPost: 5,
			wantDoubleSrcPre: true, wantDoubleSrcPost: false, wantUnalignedDstSrc: true,
			wantSrc64IncByPre: true,
		},
		{name: "E", dstOff: 0, srcOff: 0, count: 100, wantPre: 0, wantLoop: 12, wantPost: 4},
		{
			name: "F", dstOff: 3, srcOff: 5, count: 100,
			wantPre: 5, wantLoop: 11, wantPost: 7,
			wantDoubleSrcPre: true, wantDoubleSrcPost: true,
			wantUnalignedDstSrc: true, wantSrc64IncByPre: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dst := base + tc.dstOff
			src := base + tc.srcOff
			d := Encode(dst, src, tc.count)
			f := Decode(d)

			if uint64(f.PreCount) != tc.wantPre {
				t.Errorf("PreCount = %d, want %d", f.PreCount, tc.wantPre)
			}
			if uint64(f.LoopCount) != tc.wantLoop {
				t.Errorf("LoopCount = %d, want %d", f.LoopCount, tc.wantLoop)
			}
			if uint64(f.PostCount) != tc.wantPost {
				t.Errorf("PostCount = %d, want %d", f.PostCount, tc.wantPost)
			}
			if f.DoubleSrcPre != tc.wantDoubleSrcPre {
				t.Errorf("DoubleSrcPre = %v, want %v", f.DoubleSrcPre, tc.wantDoubleSrcPre)
			}
			if f.DoubleSrcPost != tc.wantDoubleSrcPost {
				t.Errorf("DoubleSrcPost = %v, want %v", f.DoubleSrcPost, tc.wantDoubleSrcPost)
			}
			if f.UnalignedSrc != tc.wantUnalignedDstSrc {
				t.Errorf("UnalignedSrc = %v, want %v", f.UnalignedSrc, tc.wantUnalignedDstSrc)
			}
			if f.Src64IncByPre != tc.wantSrc64IncByPre {
				t.Errorf("Src64IncByPre = %v, want %v", f.Src64IncByPre, tc.wantSrc64IncByPre)
			}
			if uint64(f.DstOffset) != tc.dstOff {
				t.Errorf("DstOffset = %d, want %d", f.DstOffset, tc.dstOff)
			}
			if uint64(f.SrcOffset) != tc.srcOff {
				t.Errorf("SrcOffset = %d, want %d", f.SrcOffset, tc.srcOff)
			}
		})
	}
}

func TestEncode_DecompositionSoundness(t *testing.T) {
	for dstOff := uint64(0); dstOff < 8; dstOff++ {
		for srcOff := uint64(0); srcOff < 8; srcOff++ {
			for count := uint64(0); count < 200; count++ {
				dst := 0x2000 + dstOff
				src := 0x3000 + srcOff
				f := Decode(Encode(dst, src, count))

				got := uint64(f.PreCount) + 8*uint64(f.LoopCount) + uint64(f.PostCount)
				if got != count {
					t.Fatalf("dstOff=%d srcOff=%d count=%d: pre+8*loop+post=%d, want %d",
						dstOff, srcOff, count, got, count)
				}
				if f.PreCount > 7 || f.PostCount > 7 {
					t.Fatalf("dstOff=%d srcOff=%d count=%d: pre=%d post=%d out of [0,7]",
						dstOff, srcOff, count, f.PreCount, f.PostCount)
				}
			}
		}
	}
}

// TestOffsetFlagsTable_CollisionsAreHarmless checks the table's core
// assumption directly: for a fixed (dstOff, srcOff), every count sharing
// the same table_count_lo must decode to the same pre_count, post_count,
// pre_writes, and flag bits as computeOffsetFlags computed from lo alone
// (loop_count is exempt — it is never read from the table).
func TestOffsetFlagsTable_CollisionsAreHarmless(t *testing.T) {
	for dstOff := uint64(0); dstOff < 8; dstOff++ {
		for srcOff := uint64(0); srcOff < 8; srcOff++ {
			for lo := uint64(0); lo < 16; lo++ {
				want := computeOffsetFlags(dstOff, srcOff, lo)
				for _, count := range []uint64{lo, lo + 8, lo + 800} {
					if tableCountLo(count) != lo {
						continue
					}
					got := Decode(Encode(0x4000+dstOff, 0x5000+srcOff, count))
					if uint64(got.PreCount) != uint64(want.preCount) ||
						uint64(got.PostCount) != uint64(want.postCount) ||
						uint64(got.PreWrites) != uint64(want.preWrites) ||
						got.DoubleSrcPre != want.doubleSrcPre ||
						got.DoubleSrcPost != want.doubleSrcPost ||
						got.Src64IncByPre != want.src64IncByPre {
						t.Fatalf("dstOff=%d srcOff=%d lo=%d count=%d: table entry %+v, decoded %+v",
							dstOff, srcOff, lo, count, want, got)
					}
				}
			}
		}
	}
}

func TestEncode_PreWritesMatchesPreAndPost(t *testing.T) {
	for dstOff := uint64(0); dstOff < 8; dstOff++ {
		for srcOff := uint64(0); srcOff < 8; srcOff++ {
			for count := uint64(0); count < 64; count++ {
				f := Decode(Encode(0x4000+dstOff, 0x5000+srcOff, count))
				want := uint64(0)
				if f.PreCount > 0 {
					want++
				}
				if f.PostCount > 0 {
					want++
				}
				if uint64(f.PreWrites) != want {
					t.Fatalf("dstOff=%d srcOff=%d count=%d: PreWrites=%d, want %d",
						dstOff, srcOff, count, f.PreWrites, want)
				}
			}
		}
	}
}

func FuzzEncodeDecode(f *testing.F) {
	f.Add(uint64(0x1003), uint64(0x2005), uint64(100))
	f.Add(uint64(0), uint64(0), uint64(0))
	f.Add(uint64(7), uint64(0), uint64(1))

	f.Fuzz(func(t *testing.T, dst, src, count uint64) {
		count %= 1 << 31 // descriptors only promise a 31-bit count range

		d := Encode(dst, src, count)
		fields := Decode(d)

		if uint64(fields.PreCount)+8*uint64(fields.LoopCount)+uint64(fields.PostCount) != count {
			t.Fatalf("decomposition does not sum to count: dst=%d src=%d count=%d fields=%+v", dst, src, count, fields)
		}
		if d2 := Encode(dst, src, count); d2 != d {
			t.Fatalf("Encode is not deterministic: %d != %d", d, d2)
		}
	})
}
