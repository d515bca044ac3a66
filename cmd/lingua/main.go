// Package main provides the lingua CLI.
//
// Usage:
//
//	lingua init -config lingua.yaml -out model.safetensors
//	lingua translate -config lingua.yaml [-snapshot model.safetensors] [text ...]
//	lingua serve-attention -config lingua.yaml [-addr localhost:8815]
//	lingua version
//
// translate reads one text per line from stdin when no text is given.
package main

import (
	"fmt"
	"io"
	"os"
)

const version = "v0.1.0-dev"

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "lingua: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout io.Writer) error {
	if len(args) == 0 {
		usage(stdout)
		return nil
	}

	switch args[0] {
	case "version":
		_, err := fmt.Fprintf(stdout, "lingua %s\n", version)
		return err
	case "init":
		return runInit(args[1:], stdout)
	case "translate":
		return runTranslate(args[1:], stdin, stdout)
	case "serve-attention":
		return runServe(args[1:], stdin, stdout)
	case "help", "-h", "--help":
		usage(stdout)
		return nil
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func usage(w io.Writer) {
	_, _ = fmt.Fprintf(w, "lingua %s - sequence-to-sequence translation\n\n", version)
	_, _ = fmt.Fprintln(w, "Commands:")
	_, _ = fmt.Fprintln(w, "  init             Build a model from a config and save its parameters")
	_, _ = fmt.Fprintln(w, "  translate        Translate texts from arguments or stdin")
	_, _ = fmt.Fprintln(w, "  serve-attention  Translate stdin lines and publish attention over Arrow Flight")
	_, _ = fmt.Fprintln(w, "  version          Show version")
}
