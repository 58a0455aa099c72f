package main

import (
	"os"

	"github.com/dgallion1/ismsdoc/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
