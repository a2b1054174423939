package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"ontolock/internal/auth"
)

var tokenSave bool

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Manage the reviewer token",
	Long: `The review surface accepts approve and reject requests only with the
reviewer token. Configuration stores a bcrypt hash of it, never the token.

Examples:
  ontolock token generate --save
  echo "$TOKEN" | ontolock token hash`,
}

var tokenGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a reviewer token",
	Args:  cobra.NoArgs,
	RunE:  runTokenGenerate,
}

var tokenHashCmd = &cobra.Command{
	Use:   "hash [token]",
	Short: "Print the bcrypt hash of a token (read from stdin if omitted)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runTokenHash,
}

func init() {
	tokenGenerateCmd.Flags().BoolVar(&tokenSave, "save", false, "Store the token hash in .ontolock/config.json")
	tokenCmd.AddCommand(tokenGenerateCmd)
	tokenCmd.AddCommand(tokenHashCmd)
	rootCmd.AddCommand(tokenCmd)
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

	out := cmd.OutOrStdout()
	if tokenSave {
		p, err := loadProject()
		if err != nil {
			return err
		}
		p.cfg.Review.TokenHash = hash
		if err := p.cfg.Save(p.root); err != nil {
			return fmt.Errorf("save config: %w", err)
		}
		fmt.Fprintln(out, "Token hash saved to config. The token is shown once:")
		fmt.Fprintln(out)
		fmt.Fprintf(out, "  %s\n", token)
		return nil
	}

	fmt.Fprintf(out, "Token: %s\n", token)
	fmt.Fprintf(out, "Hash:  %s\n", hash)
	fmt.Fprintln(out, "\nSet review.tokenHash (or ONTOLOCK_REVIEW_TOKENHASH) to the hash.")
	return nil
}

func runTokenHash(cmd *cobra.Command, args []string) error {
	var token string
	if len(args) == 1 {
		token = args[0]
	} else {
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("read token: %w", err)
		}
		token = line
	}
	token = strings.TrimSpace(token)
	if !auth.IsValidTokenFormat(token) {
		return fmt.Errorf("not a reviewer token (expected %s followed by hex)", auth.TokenPrefix)
	}
	hash, err := auth.HashToken(token)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), hash)
	return nil
}
