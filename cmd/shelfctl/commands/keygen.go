package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shelfwise/shelfwise-server/internal/auth"
)

var keyOutput string

// keygenCmd prints or writes a new token signing key
var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate a token signing key",
	Long: `Generate a random 256-bit token signing key, hex encoded.

Examples:
  shelfctl keygen
  shelfctl keygen --output /etc/shelfwise/signing.key`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		key, err := auth.GenerateKeyHex()
		if err != nil {
			return err
		}

		if keyOutput == "" {
			fmt.Fprintln(cmd.OutOrStdout(), key)
			return nil
		}

		f, err := os.OpenFile(keyOutput, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
		if err != nil {
			return fmt.Errorf("create key file: %w", err)
		}
		if _, err := fmt.Fprintln(f, key); err != nil {
			f.Close()
			return fmt.Errorf("write key file: %w", err)
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("write key file: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Signing key written to %s\n", keyOutput)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(keygenCmd)

	keygenCmd.Flags().StringVarP(&keyOutput, "output", "o", "", "Write the key to this file instead of stdout (never overwrites)")
}
