package cmd

// Version is set at build time via -ldflags "-X github.com/nvestri/imagescout/cmd.Version=...".
var Version = "dev"
