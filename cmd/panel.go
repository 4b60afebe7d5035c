package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/shiftr/internal/model"
	"github.com/Tiliavir/shiftr/internal/publish"
	"github.com/Tiliavir/shiftr/internal/roster"
)

var panelChannel string

var rosterPanelCmd = &cobra.Command{
	Use:   "panel",
	Short: "Post a new roster message and bind it to the organization",
	Long: `Posts the current roster into a chat channel and stores the channel
and message ids in the organization settings, so every later shift
change edits that message.`,
	Args: cobra.NoArgs,
	RunE: runPanel,
}

func init() {
	rosterPanelCmd.Flags().StringVar(&panelChannel, "channel", "", "Channel to post the roster into")
	_ = rosterPanelCmd.MarkFlagRequired("channel")
}

func runPanel(cmd *cobra.Command, args []string) error {
	if app.client == nil {
		exitWith(errors.New("publishing is not configured: set publish.api_base and publish.bot_token"))
	}
	ctx := cmd.Context()

	view, err := roster.Build(ctx, app.store, orgID, app.machine.Now())
	if err != nil {
		exitWith(err)
	}
	id, err := app.client.CreateMessage(ctx, panelChannel, view)
	if err != nil {
		exitWith(err)
	}
	if _, err := app.store.UpsertSettings(ctx, orgID, model.SettingsUpdate{
		ChannelID:       &panelChannel,
		RosterMessageID: &id,
	}); err != nil {
		exitWith(err)
	}

	fmt.Printf("Posted roster message %s to channel %s.\n", id, panelChannel)
	fmt.Println(publish.Render(view))
	return nil
}
