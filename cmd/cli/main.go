// sanreport - Sanitizer Report Tool
//
// sanreport parses sanitizer output from test logs and counts each distinct
// finding per package, error name and stack trace key.
package main

import (
	"os"

	"github.com/ccollicutt/sanreport/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
