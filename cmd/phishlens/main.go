// Command phishlens scores web pages for phishing risk and serves the
// PhishLens API.
package main

import (
	"fmt"
	"os"

	"github.com/raysh454/phishlens/internal/cli"
)

func main() {
	if err := cli.Execute(os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
