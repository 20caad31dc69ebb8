package main

import (
	"flag"
	"fmt"
	"strconv"
)

// flagSet wraps flag.FlagSet to add support for uint64 flags, which the
// standard flag package does not provide directly.
type flagSet struct {
	*flag.FlagSet
}

func newCustomFlagSet(name string) *flagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	return &flagSet{FlagSet: fs}
}

func (fs *flagSet) Uint64Var(p *uint64, name string, value uint64, usage string) {
	fs.FlagSet.Var(&uint64Value{p: p}, name, usage)
	*p = value
}

// uint64Value implements flag.Value for uint64 flags.
type uint64Value struct {
	p *uint64
}

func (v *uint64Value) String() string {
	if v.p == nil {
		return "0"
	}
	return strconv.FormatUint(*v.p, 10)
}

func (v *uint64Value) Set(s string) error {
	n, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return fmt.Errorf("invalid uint64 value %q", s)
	}
	*v.p = n
	return nil
}

// config holds every value parseFlags binds from the command line.
type config struct {
	Mode       string
	Dst        uint64
	Src        uint64
	Count      uint64
	SeedByte   uint64
	TraceCap   uint64
	MtMargin   uint64
	BytesPerStep uint64
	Verbosity  int
}

func defaultConfig() config {
	return config{
		Mode:         "mtrace",
		Dst:          0x2000,
		Src:          0x1000,
		Count:        37,
		SeedByte:     1,
		TraceCap:     64,
		MtMargin:     16,
		BytesPerStep: 256,
		Verbosity:    3,
	}
}

func newFlagSet(cfg *config) *flagSet {
	fs := newCustomFlagSet("dmatrace")
	fs.StringVar(&cfg.Mode, "mode", cfg.Mode, "copier to run: mtrace, mops, or fast")
	fs.Uint64Var(&cfg.Dst, "dst", cfg.Dst, "destination address")
	fs.Uint64Var(&cfg.Src, "src", cfg.Src, "source address")
	fs.Uint64Var(&cfg.Count, "count", cfg.Count, "byte count to copy")
	fs.Uint64Var(&cfg.SeedByte, "seed", cfg.SeedByte, "first byte value used to fill source memory before the copy")
	fs.Uint64Var(&cfg.TraceCap, "trace-cap", cfg.TraceCap, "initial word capacity of the governed trace region (mtrace mode only)")
	fs.Uint64Var(&cfg.MtMargin, "mt-margin", cfg.MtMargin, "worst-case word growth the governor reserves for one call")
	fs.Uint64Var(&cfg.BytesPerStep, "bytes-per-step", cfg.BytesPerStep, "per-step trace byte budget used to judge a genuine overrun")
	fs.IntVar(&cfg.Verbosity, "verbosity", cfg.Verbosity, "log level 0-5 (0 and 1=errors only, 5=trace)")
	return fs
}
