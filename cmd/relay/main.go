package main

import (
	"os"

	"github.com/rasool-click/wessaal-relay/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
