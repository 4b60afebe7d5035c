package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Tiliavir/shiftr/internal/model"
)

var (
	settingsEmployeeRole string
	settingsOnDutyRole   string
	settingsChannel      string
	settingsMessage      string
	settingsFormat       string
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or change the organization settings",
}

var settingsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Change role and roster bindings",
	Args:  cobra.NoArgs,
	RunE:  runSettingsSet,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the organization settings",
	Args:  cobra.NoArgs,
	RunE:  runSettingsShow,
}

func init() {
	f := settingsSetCmd.Flags()
	f.StringVar(&settingsEmployeeRole, "employee-role", "", "Role allowed to track shifts")
	f.StringVar(&settingsOnDutyRole, "on-duty-role", "", "Role granted while on duty")
	f.StringVar(&settingsChannel, "channel", "", "Channel of the roster message")
	f.StringVar(&settingsMessage, "message", "", "Id of the roster message")

	settingsShowCmd.Flags().StringVar(&settingsFormat, "format", "yaml", "Output format: yaml, json")

	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsShowCmd)
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	var update model.SettingsUpdate
	flags := cmd.Flags()
	if flags.Changed("employee-role") {
		update.EmployeeRoleID = &settingsEmployeeRole
	}
	if flags.Changed("on-duty-role") {
		update.OnDutyRoleID = &settingsOnDutyRole
	}
	if flags.Changed("channel") {
		update.ChannelID = &settingsChannel
	}
	if flags.Changed("message") {
		update.RosterMessageID = &settingsMessage
	}
	if update == (model.SettingsUpdate{}) {
		return fmt.Errorf("nothing to change: pass at least one of --employee-role, --on-duty-role, --channel, --message")
	}

	settings, err := app.store.UpsertSettings(cmd.Context(), orgID, update)
	if err != nil {
		exitWith(err)
	}
	app.refresher.Trigger(orgID)
	fmt.Printf("Settings of %s updated.\n", settings.OrganizationID)
	return nil
}

func runSettingsShow(cmd *cobra.Command, args []string) error {
	settings, err := app.store.GetSettings(cmd.Context(), orgID)
	if err != nil {
		exitWith(err)
	}

	if settingsFormat == "json" {
		data, err := json.MarshalIndent(settings, "", "  ")
		if err != nil {
			fmt.Fprintln(os.Stderr, "error encoding JSON:", err)
			os.Exit(2)
		}
		fmt.Println(string(data))
		return nil
	}
	data, err := yaml.Marshal(settings)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error encoding YAML:", err)
		os.Exit(2)
	}
	fmt.Print(string(data))
	return nil
}
