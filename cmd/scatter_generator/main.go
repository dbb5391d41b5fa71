// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// scatter_generator generates the scattered version of the operators of a package: for each function marked
// with the "//scatter:op" directive, it generates a function named <Name>Scattered that takes the
// options.Options parameter split into four optional parameters (dtype, layout, device and pinMemory), gathers
// them back and calls the original function. Functions without an options.Options parameter are passed through
// unchanged: <Name>Scattered is the original function.
//
// Typical use, in one of the files of the package:
//
//	//go:generate go run github.com/gomlx/scatter/cmd/scatter_generator
//
// Invalid signatures, e.g. with two options.Options parameters, are reported with their location and
// the generator exits with status 1, failing `go generate`. Use -check to only validate.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gomlx/scatter/internal/scatter"
	"github.com/gomlx/scatter/internal/sigparser"
	"github.com/janpfeifer/must"
	"k8s.io/klog/v2"
)

var (
	flagDir         = flag.String("dir", ".", "Directory of the package to process.")
	flagOutput      = flag.String("output", scatter.DefaultOutput, "Generated file, relative to -dir unless absolute.")
	flagOptionsPkg  = flag.String("options_pkg", sigparser.OptionsImportPath, "Import path of the package defining the options aggregate.")
	flagOptionsType = flag.String("options_type", sigparser.OptionsTypeName, "Name of the options aggregate type.")
	flagLocal       = flag.Bool("local", false, "Set if the processed package is the one defining the options aggregate.")
	flagSuffix      = flag.String("suffix", scatter.DefaultSuffix, "Suffix appended to the function names to name the scattered versions.")
	flagRegister    = flag.Bool("register", true, "Generate RegisterScatteredOps, registering all scattered functions in a registry.Registry.")
	flagCheck       = flag.Bool("check", false, "Only validate the marked functions, don't write anything.")
	flagReport      = flag.Bool("report", false, "Print a table with the functions processed.")
)

func main() {
	klog.InitFlags(nil)
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Generates the scattered version of the functions marked with %q.\n\n", sigparser.Directive)
		flag.PrintDefaults()
	}
	flag.Parse()

	dir := must.M1(filepath.Abs(*flagDir))
	klog.V(1).Infof("scatter_generator: dir=%s, GOFILE=%q, GOPACKAGE=%q", dir, os.Getenv("GOFILE"), os.Getenv("GOPACKAGE"))
	cfg := scatter.Config{
		Matcher: sigparser.Matcher{
			ImportPath: *flagOptionsPkg,
			TypeName:   *flagOptionsType,
			Local:      *flagLocal,
		},
		Suffix:   *flagSuffix,
		Register: *flagRegister,
	}
	result, err := scatter.Run(dir, *flagOutput, cfg, *flagCheck)
	if err != nil {
		for _, line := range strings.Split(err.Error(), "\n") {
			fmt.Fprintf(os.Stderr, "❌ scatter_generator: %s\n", line)
		}
		os.Exit(1)
	}
	if *flagReport {
		fmt.Println(Report(result))
	}
	if result.Output == "" {
		fmt.Printf("✅ scatter_generator:       \t%d functions of package %s are valid\n", len(result.Plans), result.Package)
		return
	}
	fmt.Printf("✅ scatter_generator:       \tsuccessfully generated %s\n", result.Output)
}
