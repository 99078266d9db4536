package main

import (
	"errors"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if errors.Is(err, errDuplicates) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
