// The main package for the marsd executable.
package main

import (
	"github.com/JakeFAU/mars-scraper/cmd"
)

// main defers all execution to the Cobra CLI.
func main() {
	cmd.Execute()
}
