package main

import (
	"bufio"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"snsapi/internal/cmdlog"
	"snsapi/internal/renren"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Authorize a channel with Renren OAuth2",
	Long: `Print the authorization URL, then read the URL the browser was
redirected to from stdin. The resulting token is saved in the database.`,
	RunE: runAuth,
}

func init() {
	rootCmd.AddCommand(authCmd)
}

func runAuth(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.Close()

	return cmdlog.Run(a.log, "auth", func() error {
		o := renren.NewOAuth(renren.OAuthConfig{
			Channel:     a.chCfg.ChannelName,
			AppKey:      a.chCfg.AppKey,
			AppSecret:   a.chCfg.AppSecret,
			CallbackURL: a.chCfg.AuthInfo.CallbackURL,
		}, a.db, a.log)

		in := bufio.NewReader(cmd.InOrStdin())
		fetch := func(ctx context.Context, authURL string) (string, error) {
			fmt.Fprintln(cmd.OutOrStdout(), "Open this URL and authorize the app:")
			fmt.Fprintln(cmd.OutOrStdout(), authURL)
			fmt.Fprint(cmd.OutOrStdout(), "Paste the redirected URL: ")
			line, err := in.ReadString('\n')
			if err != nil && line == "" {
				return "", err
			}
			return strings.TrimSpace(line), nil
		}

		tok, err := o.Authenticate(cmd.Context(), fetch)
		if err != nil {
			return err
		}
		if tok.ExpiresIn > 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "Channel %s authorized until %s\n",
				a.chCfg.ChannelName, time.Unix(tok.ExpiresIn, 0).Format(time.RFC3339))
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "Channel %s authorized\n", a.chCfg.ChannelName)
		}
		return nil
	})
}
