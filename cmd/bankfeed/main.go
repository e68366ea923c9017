package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/bankfeed-dev/bankfeed/internal/commands"
)

func main() {
	// Optional .env for BANKFEED_CONFIG / BANKFEED_DB overrides.
	_ = godotenv.Load()

	if err := commands.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
