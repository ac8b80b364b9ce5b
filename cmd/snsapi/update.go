package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"snsapi/internal/cmdlog"
	"snsapi/internal/engage"
	"snsapi/internal/model"
	"snsapi/internal/util"
)

var (
	replyStatusID string
	replyUserID   string
)

var updateCmd = &cobra.Command{
	Use:   "update <text>",
	Short: "Post a new status",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runUpdate,
}

var replyCmd = &cobra.Command{
	Use:   "reply <text>",
	Short: "Comment on a status or share",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runReply,
}

func init() {
	replyCmd.Flags().StringVar(&replyStatusID, "status-id", "", "id of the status or share")
	replyCmd.Flags().StringVar(&replyUserID, "user-id", "", "id of its author")
	_ = replyCmd.MarkFlagRequired("status-id")
	_ = replyCmd.MarkFlagRequired("user-id")
	rootCmd.AddCommand(updateCmd, replyCmd)
}

var errOverBudget = errors.New("mutation budget exhausted; try again later")

func runUpdate(cmd *cobra.Command, args []string) error {
	text := util.NormalizeWhitespace(strings.Join(args, " "))
	return mutate(cmd, engage.ActionUpdate, func(a *app) bool {
		return a.channel.Update(cmd.Context(), text)
	})
}

func runReply(cmd *cobra.Command, args []string) error {
	text := util.NormalizeWhitespace(strings.Join(args, " "))
	return mutate(cmd, engage.ActionReply, func(a *app) bool {
		id := model.StatusID{
			Platform:     a.channel.Platform(),
			StatusID:     replyStatusID,
			SourceUserID: replyUserID,
		}
		return a.channel.Reply(cmd.Context(), id, text)
	})
}

// mutate runs op under the mutation budget and records it on success.
func mutate(cmd *cobra.Command, typ string, op func(a *app) bool) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.Close()

	return cmdlog.Run(a.log, typ, func() error {
		ctx := cmd.Context()
		if err := a.authorized(ctx); err != nil {
			return err
		}
		ok, err := engage.Allow(ctx, a.db, a.cfg.Budget, timeNow())
		if err != nil {
			return err
		}
		if !ok {
			return errOverBudget
		}
		if !op(a) {
			return fmt.Errorf("%s on channel %q failed", typ, a.chCfg.ChannelName)
		}
		if err := engage.Record(ctx, a.db, typ, timeNow()); err != nil {
			a.log.Warn("record action failed", zap.Error(err))
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s ok\n", typ)
		return nil
	})
}
