package main

import (
	"os"

	"github.com/ayusman/facemark/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
