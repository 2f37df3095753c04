// cdcview generates the catalog columns and Athena views of DynamoDB change
// data capture tables.
//
// # Commands
//
//	cdcview generate   Render every artifact of one view configuration
//	cdcview batch      Render the views listed in a YAML manifest
//	cdcview transform  Answer a macro event read from a file or stdin
//	cdcview parse      Print the canonical form and leaves of a type string
//	cdcview decode     Print the payload of a view's original text
//	cdcview infer      Derive the key and new image types of a table
//	cdcview serve      Start the HTTP server
//	cdcview version    Print version information
//
// Defaults are read from cdcview.yaml, searched from the working directory
// up to the filesystem root. A .env file in the working directory is loaded
// before the environment is read.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

func main() {
	// Load .env file if it exists (silently ignore errors)
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
