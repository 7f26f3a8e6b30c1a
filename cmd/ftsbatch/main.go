// Command ftsbatch averages or ratios spectra across multiple FTS/OPUS
// files and writes the result as ASCII two-column text.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/mbuschmann/ftsreader"
	"github.com/mbuschmann/ftsreader/internal/batch"
	"golang.org/x/xerrors"
)

var (
	debug       = flag.Bool("debug", false, "format error messages with additional detail")
	mode        = flag.String("mode", "average", "operation to perform: average or divide")
	out         = flag.String("out", "", "output path for the ASCII two-column result (required)")
	interferogram = flag.Bool("interferogram", false, "average interferograms instead of spectra")
	interpolate = flag.Bool("interpolate", false, "divide: resample the second spectrum onto the first's axis")
	normalise   = flag.Bool("normalise", false, "divide: divide the result by its own mean")
)

func runAverage(args []string) error {
	if len(args) == 0 {
		return xerrors.New("ftsbatch: average requires at least one input file")
	}
	ctx, canc := ftsreader.InterruptibleContext()
	defer canc()

	c := &batch.Ctx{Log: log.New(os.Stderr, "", log.LstdFlags)}
	m := batch.Spectra
	if *interferogram {
		m = batch.Interferograms
	}
	wvn, mean, err := c.Average(ctx, args, m)
	if err != nil {
		return xerrors.Errorf("ftsbatch: %w", err)
	}
	return batch.Save(*out, wvn, mean)
}

func runDivide(args []string) error {
	if len(args) != 2 {
		return xerrors.New("ftsbatch: divide requires exactly two input files")
	}
	f1, err := ftsreader.Open(args[0], ftsreader.WithSpectrum())
	if err != nil {
		return xerrors.Errorf("ftsbatch: opening %s: %w", args[0], err)
	}
	f2, err := ftsreader.Open(args[1], ftsreader.WithSpectrum())
	if err != nil {
		return xerrors.Errorf("ftsbatch: opening %s: %w", args[1], err)
	}
	if !f1.HasSpectrum || !f2.HasSpectrum {
		return xerrors.New("ftsbatch: both files must carry a spectrum data block")
	}
	wvn, result, err := batch.Divide(f1.SpectrumWvn, f1.Spectrum, f2.SpectrumWvn, f2.Spectrum, *interpolate, *normalise)
	if err != nil {
		return xerrors.Errorf("ftsbatch: %w", err)
	}
	return batch.Save(*out, wvn, result)
}

func funcmain() error {
	flag.Parse()
	if *out == "" {
		fmt.Fprintf(os.Stderr, "syntax: ftsbatch -mode=average|divide -out=<path> <file...>\n")
		os.Exit(2)
	}

	var err error
	switch *mode {
	case "average":
		err = runAverage(flag.Args())
	case "divide":
		err = runDivide(flag.Args())
	default:
		fmt.Fprintf(os.Stderr, "unknown mode %q\n", *mode)
		os.Exit(2)
	}
	if err != nil {
		if *debug {
			return xerrors.Errorf("ftsbatch: %+v", err)
		}
		return err
	}
	return nil
}

func main() {
	if err := funcmain(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
