// -- cmd/version.go --
package cmd

// Version is the application version. It is overridden at build time via
// -ldflags "-X github.com/xkilldash9x/webpilot-cli/cmd.Version=...".
var Version = "dev"
