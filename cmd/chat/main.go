// Command chat is a terminal client for one conversation. It opens a
// conversation view over the REST API and the live feed, prints messages as
// they arrive and sends every line typed on stdin.
package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"campusmarket/backend/internal/chatclient"
	"campusmarket/backend/internal/httpclient"
	"campusmarket/backend/internal/logger"
	"campusmarket/backend/internal/messaging"
	"campusmarket/backend/internal/msgcache"

	"github.com/golang-jwt/jwt/v5"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	var (
		baseURL string
		token   string
		verbose bool
	)
	root := &cobra.Command{
		Use:           "chat <peer_user_id>",
		Short:         "Chat with another student from the terminal",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			peer := args[0]
			if !messaging.IsUUID(peer) {
				return fmt.Errorf("%q is not a UUID", peer)
			}
			self, err := tokenSubject(token)
			if err != nil {
				return err
			}

			log := zap.NewNop()
			if verbose {
				if log, err = logger.New(true); err != nil {
					return err
				}
			}

			wsURL, err := chatclient.WebSocketURL(baseURL)
			if err != nil {
				return err
			}
			api := chatclient.NewHTTPClient(baseURL, token, httpclient.NewClient(httpclient.DefaultConfig()))
			feed := chatclient.NewWSFeed(wsURL, token, log)
			view := chatclient.NewView(self, peer, api, feed, msgcache.New(), log)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return newSession(self, view, cmd.OutOrStdout()).Run(ctx, cmd.InOrStdin())
		},
	}
	root.Flags().StringVar(&baseURL, "api", envOr("CAMPUSMARKET_API", "http://localhost:8080"), "API base URL")
	root.Flags().StringVar(&token, "token", os.Getenv("CAMPUSMARKET_TOKEN"), "session token from /api/auth/login")
	root.Flags().BoolVarP(&verbose, "verbose", "v", false, "log to stderr")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// tokenSubject reads the caller's user id from the session token. The server
// verifies the signature; the client only needs the subject.
func tokenSubject(token string) (string, error) {
	if token == "" {
		return "", errors.New("a session token is required (--token or CAMPUSMARKET_TOKEN)")
	}
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return "", fmt.Errorf("parse token: %w", err)
	}
	if !messaging.IsUUID(claims.Subject) {
		return "", errors.New("token has no user id")
	}
	return claims.Subject, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
