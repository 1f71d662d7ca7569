package main

import (
	"os"

	"github.com/go-automake/automake/driver"
)

func main() {
	if err := driver.RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
