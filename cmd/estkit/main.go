// Command estkit drives the estimators, tuners, optimiser and clusterer
// from the command line.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
