package main

import (
	"fmt"
	"os"
	"strings"
)

// Version is set at build time via -ldflags "-X main.Version=...".
var Version = "dev"

const usage = `Usage: appgen <command> [flags]

Commands:
  generate   Generate binder projects from an app descriptor
  serve      Run the generation HTTP API (default)
  version    Print the version
`

func main() {
	if len(os.Args) < 2 {
		os.Exit(runServe(nil))
	}

	switch os.Args[1] {
	case "generate":
		os.Exit(runGenerate(os.Args[2:]))
	case "serve":
		os.Exit(runServe(os.Args[2:]))
	case "version":
		fmt.Println(Version)
	case "help", "-h", "-help", "--help":
		fmt.Print(usage)
	default:
		// Flags without a command go to serve
		if strings.HasPrefix(os.Args[1], "-") {
			os.Exit(runServe(os.Args[1:]))
		}
		fmt.Fprintf(os.Stderr, "Unknown command %q\n\n%s", os.Args[1], usage)
		os.Exit(1)
	}
}
