// Package main provides the Jimeng image generation CLI.
//
// Usage:
//
//	jimeng [flags] <command> [args]
//
// Commands:
//
//	generate - Generate images from a prompt, prompt file or request file
//	history  - List images already saved to the output store
//	serve    - Start the web UI
//	config   - Manage contexts
//	version  - Print the version
//
// Configuration:
//
//	The CLI stores configuration in ~/.jimeng/
//	Use 'jimeng config' commands to manage contexts.
package main

import (
	"fmt"
	"os"

	"github.com/haivivi/jimeng/cmd/jimeng/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
