package main

import (
	"os"

	"github.com/dshills/stylegate/internal/cli"
)

func main() {
	os.Exit(cli.Run())
}
