// convlog - Conversion Log Analyzer
//
// convlog counts the CRITICAL, ERROR and WARNING lines in data conversion
// logs, grouped by [STEP:<name>] tags, and writes summary reports.
package main

import (
	"os"

	"github.com/ccollicutt/convlog/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
