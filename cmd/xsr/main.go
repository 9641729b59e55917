package main

import (
	"os"

	"github.com/bnema/xserver-renew/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
