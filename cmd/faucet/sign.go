package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/layer-3/faucet/adapters/ethsig"
	"github.com/spf13/cobra"
)

var signCmd = &cobra.Command{
	Use:   "sign",
	Short: "Sign a challenge message the way a wallet would",
	Long: `sign produces an EIP-191 personal_sign signature over a challenge
returned by POST /auth/message. It stands in for a browser wallet during
development.

Examples:
  faucet sign --key <hex> --message-file challenge.txt
  faucet sign --key <hex> --message "$(cat challenge.txt)"`,
	RunE: runSign,
}

func init() {
	rootCmd.AddCommand(signCmd)

	signCmd.Flags().String("key", "", "hex-encoded secp256k1 private key")
	signCmd.Flags().String("message", "", "message text to sign")
	signCmd.Flags().String("message-file", "", "file holding the message text")
}

func runSign(cmd *cobra.Command, _ []string) error {
	keyHex, _ := cmd.Flags().GetString("key")
	text, _ := cmd.Flags().GetString("message")
	file, _ := cmd.Flags().GetString("message-file")

	if keyHex == "" {
		return errors.New("--key is required")
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(keyHex, "0x"))
	if err != nil {
		return fmt.Errorf("parse key: %w", err)
	}

	switch {
	case text != "" && file != "":
		return errors.New("use either --message or --message-file")
	case file != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("read message: %w", err)
		}
		text = strings.TrimRight(string(b), "\n")
	case text == "":
		return errors.New("--message or --message-file is required")
	}

	sig, err := ethsig.Sign(text, key)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "address:   %s\nsignature: %s\n", ethsig.Address(key), sig)
	return nil
}
