package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cfgFile string
	devMode bool
)

var rootCmd = &cobra.Command{
	Use:   "faucet",
	Short: "Sign-In with Ethereum gated token faucet",
	Long: `faucet serves the token faucet API. Wallets sign in with an EIP-4361
message, receive a session token, and use it to claim tokens from the
faucet contract once.

Example usage:
  faucet serve                          # Run the HTTP API
  faucet serve --config faucet.yaml     # Run with a config file
  faucet sign --key <hex> --message-file challenge.txt`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is configs/faucet.yaml or ./faucet.yaml)")
	rootCmd.PersistentFlags().BoolVar(&devMode, "dev", false, "human-readable debug logging")
}

func newLogger() (*zap.Logger, error) {
	if devMode {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
