package main

import (
	"os"

	"infra_crew/cmd"

	"github.com/joho/godotenv"
)

func main() {
	// .env is optional; the process environment wins either way
	_ = godotenv.Load()

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
