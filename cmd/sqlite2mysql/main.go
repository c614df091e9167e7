// Command sqlite2mysql copies every table of a SQLite database into MySQL
// (or another registered destination), recreating each table first.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

func main() {
	// .env is optional; a missing file is not an error.
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "sqlite2mysql:", err)
		os.Exit(1)
	}
}
