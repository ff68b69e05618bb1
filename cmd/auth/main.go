// Package main is the entry point for the authentication service.
package main

import (
	"os"

	"github.com/boofmebel/auth/internal/auth/app"
)

// Set at build time.
var version = "dev"

func main() {
	app.BuildVersion = version

	cmd := NewRootCmd()
	cmd.Version = version

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
