package main

import (
	"os"

	"github.com/TFMV/topicweb/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
