package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hexosynth/hexodsp/cmd"
	"github.com/hexosynth/hexodsp/compiler"
	"github.com/hexosynth/hexodsp/version"
)

func main() {
	help := flag.Bool("h", false, "Show help.")
	listing := flag.Bool("l", false, "Print the program as a text listing instead of Graphviz DOT.")
	tmplDir := flag.String("t", "", "Use the templates in this directory instead of the built-in templates.")
	settingsFile := flag.String("settings", "", "Read the engine settings from this file instead of the user settings.yml.")
	versionFlag := flag.Bool("v", false, "Print version.")
	flag.Usage = printUsage
	flag.Parse()
	if *versionFlag {
		fmt.Println(version.String("hexodsp-graph"))
		os.Exit(0)
	}
	if flag.NArg() == 0 || *help {
		flag.Usage()
		os.Exit(0)
	}
	var comp *compiler.Compiler
	var err error
	if *tmplDir != "" {
		comp, err = compiler.NewFromTemplates(*tmplDir)
	} else {
		comp, err = compiler.New()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not create the compiler: %v\n", err)
		os.Exit(1)
	}
	settings, err := cmd.Settings(*settingsFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}
	logger := cmd.Logger(settings)
	retval := 0
	for _, filename := range flag.Args() {
		m, _, err := cmd.LoadMatrix(filename, settings, logger)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			retval = 1
			continue
		}
		cells, _ := m.GetCopy()
		_, name := filepath.Split(filename)
		g := compiler.NewGraph(strings.TrimSuffix(name, filepath.Ext(name)), m.Program(), cells)
		var out string
		if *listing {
			out, err = comp.Listing(g)
		} else {
			out, err = comp.Dot(g)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "could not process file %v: %v\n", filename, err)
			retval = 1
			continue
		}
		fmt.Print(out)
	}
	os.Exit(retval)
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Prints the compiled program of hexodsp matrix files as Graphviz DOT.\nUsage: %s [flags] [file.yml ...]\n", os.Args[0])
	flag.PrintDefaults()
}
