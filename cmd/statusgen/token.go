package main

import (
	"fmt"

	"statusgen/internal/auth"

	"github.com/spf13/cobra"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Manage API tokens for the serve daemon",
}

var tokenGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a new API token",
	Long: `Generate a new API token and its bcrypt hash. Put the hash in
.statusgen/config.json under server.tokenHash; give the token to clients.
The raw token is shown once and never stored.`,
	RunE: runTokenGenerate,
}

func init() {
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.AddCommand(tokenGenerateCmd)
}

func runTokenGenerate(cmd *cobra.Command, args []string) error {
	token, err := auth.GenerateToken()
	if err != nil {
		return err
	}
	hash, err := auth.HashToken(token)
	if err != nil {
		return err
	}

	fmt.Printf("Token:      %s\n", token)
	fmt.Printf("Token hash: %s\n", hash)
	fmt.Println()
	fmt.Println(`Add to .statusgen/config.json:  "server": {"tokenHash": "<hash>"}`)
	return nil
}
