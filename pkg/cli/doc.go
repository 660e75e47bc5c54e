// Package cli holds the plumbing shared by the jimeng commands: config
// contexts, prompt and request files, output formatting and terminal
// styling.
//
// Contexts live in ~/.jimeng/config.yaml, kubectl style:
//
//	cfg, err := cli.LoadConfig("")
//	ctx, err := cfg.ResolveContext("prod")
//	cred := ctx.Credential()
//
// A context supplies defaults only; flags and environment variables win.
package cli
