// The main package for the crawl-gateway executable.
package main

import (
	"github.com/JakeFAU/crawl-gateway/cmd"
)

func main() {
	cmd.Execute()
}
