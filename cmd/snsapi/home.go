package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"snsapi/internal/cmdlog"
	"snsapi/internal/model"
	"snsapi/internal/util"
)

var homeCount int

const textWidth = 280

var homeCmd = &cobra.Command{
	Use:   "home",
	Short: "Read the home timeline of a channel",
	RunE:  runHome,
}

func init() {
	homeCmd.Flags().IntVar(&homeCount, "count", 0, "number of items to request (default: sync.count)")
	rootCmd.AddCommand(homeCmd)
}

func runHome(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.Close()

	return cmdlog.Run(a.log, "home", func() error {
		ctx := cmd.Context()
		if err := a.authorized(ctx); err != nil {
			return err
		}
		count := homeCount
		if count <= 0 {
			count = a.cfg.Sync.Count
		}
		msgs, err := a.channel.HomeTimeline(ctx, count)
		if err != nil {
			return err
		}
		if _, err := a.db.PutMessages(ctx, msgs); err != nil {
			return fmt.Errorf("archive messages: %w", err)
		}
		for i, m := range msgs {
			printMessage(cmd.OutOrStdout(), i, m)
		}
		return nil
	})
}

func printMessage(w io.Writer, i int, m model.Message) {
	fmt.Fprintf(w, "<%d>\n", i)
	fmt.Fprintf(w, "[%s] at %s\n", m.Username, m.Time.Local().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "  %s\n", util.Ellipsize(util.NormalizeWhitespace(m.Text), textWidth))
	fmt.Fprintf(w, "  id=%s user=%s comments=%d reposts=%s\n",
		m.ID.StatusID, m.ID.SourceUserID, m.CommentsCount, m.RepostsCount)
}
