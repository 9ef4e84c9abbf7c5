package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/bimtools/bim-insight/cmd"
)

func main() {
	// API keys and overrides may live in a local .env file.
	_ = godotenv.Load()

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
