package main

import (
	"context"
	"fmt"
	"os"

	"facility-backend/cli"
)

var version = "dev"

func main() {
	if err := cli.New(version).Execute(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
