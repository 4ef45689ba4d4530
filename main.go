package main

import (
	"fmt"
	"os"

	"github.com/dhcgn/attachment-archiver/cmd"
)

func main() {
	if err := cmd.Execute(os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
