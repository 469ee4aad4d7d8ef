package main

import (
	"os"

	"github.com/ziadkadry99/d365-plugin-assistant/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
