package main

import (
	"os"

	"github.com/dshills/reviewdeck/internal/cli"
)

func main() {
	os.Exit(cli.Run())
}
