package main

import (
	"os"

	"github.com/shahid-0/asantiya/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
