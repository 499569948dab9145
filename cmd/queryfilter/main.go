package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/fluxbase-eu/queryfilter/cli/cmd"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
