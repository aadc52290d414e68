package main

import (
	"github.com/charmbracelet/log"

	"cookiewarden/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		log.Fatal("cookiewarden terminated", "error", err)
	}
}
