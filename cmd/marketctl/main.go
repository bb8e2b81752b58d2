package main

import (
	"context"
	"fmt"
	"os"

	"github.com/garnizeh/marketplace/internal/cli"
)

var version = "dev"

func main() {
	if err := cli.RootCmd(version).ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
