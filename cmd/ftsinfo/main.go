// Command ftsinfo prints the parsed header of an FTS/OPUS file.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/mbuschmann/ftsreader"
	"github.com/mbuschmann/ftsreader/internal/mertz"
	"golang.org/x/xerrors"
)

var (
	debug       = flag.Bool("debug", false, "format error messages with additional detail")
	searchKey   = flag.String("search", "", "if set, only list blocks containing this parameter key")
	compareTo   = flag.String("compare", "", "if set, diff the header against this second file")
	transform   = flag.Bool("transform", false, "run the Mertz phase-correction pipeline on the primary interferogram and print the resulting spectrum's wavenumber range")
	zeroFilling = flag.Int("zero-filling", 2, "zero-filling factor used with -transform")
)

func funcmain() error {
	flag.Parse()
	args := flag.Args()
	if len(args) != 1 {
		fmt.Fprintf(os.Stderr, "syntax: ftsinfo <file>\n")
		os.Exit(2)
	}

	var opts []ftsreader.OpenOption
	if *transform {
		opts = append(opts, ftsreader.WithInterferogram())
	}
	f, err := ftsreader.Open(args[0], opts...)
	if err != nil {
		if *debug {
			return xerrors.Errorf("ftsinfo: %+v", err)
		}
		return xerrors.Errorf("ftsinfo: %v", err)
	}

	if *searchKey != "" {
		for _, block := range f.SearchHeader(*searchKey) {
			fmt.Println(block)
		}
		return nil
	}

	if *compareTo != "" {
		other, err := ftsreader.Open(*compareTo)
		if err != nil {
			return xerrors.Errorf("ftsinfo: opening %s: %w", *compareTo, err)
		}
		for _, id := range f.CompareHeader(other) {
			fmt.Println(id)
		}
		return nil
	}

	fmt.Print(f.PrintHeader())

	if *transform {
		if err := f.CalculateSpectrum(mertz.Params{Mode: mertz.AbsoluteMaximum, ZeroFilling: *zeroFilling}); err != nil {
			return xerrors.Errorf("ftsinfo: transform: %w", err)
		}
		n := len(f.SpectrumWvn)
		if n > 0 {
			fmt.Printf("\nspectrum: %d points, %.4f-%.4f cm^-1\n", n, f.SpectrumWvn[0], f.SpectrumWvn[n-1])
		}
	}

	for _, line := range f.Log() {
		fmt.Fprintln(os.Stderr, line)
	}
	return nil
}

func main() {
	if err := funcmain(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
