package main

import (
	"errors"
	"fmt"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/spf13/cobra"

	"github.com/kbukum/mywebapi/app"
	"github.com/kbukum/mywebapi/auth"
	"github.com/kbukum/mywebapi/di"
	"github.com/kbukum/mywebapi/logger"
)

func tokenCmd() *cobra.Command {
	var (
		subject string
		roles   []string
		ttl     time.Duration
	)

	c := &cobra.Command{
		Use:   "token",
		Short: "Sign a bearer token with the configured JWT settings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := app.NewBuilder(nil, app.WithFlagSet(cmd.Flags()), app.WithLogger(logger.NewNop()))
			if err != nil {
				return err
			}
			tokens, ok := di.TryResolve[*app.TokenService](b.Services(), di.Host.TokenService)
			if !ok {
				return errors.New("auth is disabled: set auth.enabled and auth.jwt")
			}

			claims := auth.NewClaims(subject, roles...)
			if ttl > 0 {
				claims.ExpiresAt = gojwt.NewNumericDate(time.Now().Add(ttl))
			}
			token, err := tokens.GenerateAccess(claims)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}

	c.Flags().StringVar(&subject, "subject", "", "token subject (required)")
	c.Flags().StringSliceVar(&roles, "role", nil, "role granted to the subject; repeatable")
	c.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (defaults to auth.jwt.access_token_ttl)")
	_ = c.MarkFlagRequired("subject")
	return c
}
