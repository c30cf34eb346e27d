package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/crawl-gateway/internal/auth"
	"github.com/JakeFAU/crawl-gateway/internal/config"
)

func newTokenCmd(cfgFile *string) *cobra.Command {
	var (
		clientID    string
		permissions []string
		ttl         time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for POST /crawl",
		Long: `token signs a credential with the configured secret (auth.secret_key or
SECRET_KEY). When no secret is configured a new one is generated and printed to
stderr so it can be stored before the server is started.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*cfgFile)
			if err != nil {
				return err
			}

			secret := cfg.Auth.SecretKey
			if secret == "" {
				secret, err = auth.GenerateSecret()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "No secret configured; generated one. Store it before starting the server:\nSECRET_KEY=%s\n", secret)
			}

			issuer, err := auth.NewIssuer(secret, nil)
			if err != nil {
				return err
			}
			token, err := issuer.Mint(clientID, permissions, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&clientID, "client-id", "crawler_client", "client_id claim")
	cmd.Flags().StringSliceVar(&permissions, "permission", []string{auth.PermissionCrawl}, "permission claims (repeatable)")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime; 0 mints a token without exp")
	return cmd
}
