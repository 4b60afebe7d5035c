package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/shiftr/internal/confirm"
)

var resetAllYes bool

var resetAllCmd = &cobra.Command{
	Use:   "reset-all",
	Short: "Delete every worker and the settings of the organization (admin)",
	Long: `Deletes all shift data of the organization. The command asks for
confirmation and gives up after 15 seconds without an answer.`,
	Args: cobra.NoArgs,
	RunE: runResetAll,
}

func init() {
	resetAllCmd.Flags().BoolVarP(&resetAllYes, "yes", "y", false, "Skip the confirmation prompt")
}

func runResetAll(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	removed := 0
	p := app.prompts.Offer("delete all shift data of "+orgID, func(ctx context.Context) error {
		n, err := app.machine.ResetAll(ctx, orgID)
		removed = n
		return err
	})

	state, err := awaitConfirmation(ctx, app.prompts, p, cmd.InOrStdin(), cmd.OutOrStdout(), resetAllYes)
	if err != nil {
		exitWith(err)
	}
	switch state {
	case confirm.Expired:
		exitWith(confirm.ErrExpired)
	case confirm.Cancelled:
		fmt.Println("Reset cancelled.")
	case confirm.Confirmed:
		fmt.Printf("Deleted %d workers and the settings of %s.\n", removed, orgID)
	}
	return nil
}

// awaitConfirmation asks on out and resolves p from the first line of in.
// It returns once p is confirmed, cancelled or expired; for a confirmed
// prompt it also waits for the action to finish and returns its error.
func awaitConfirmation(ctx context.Context, m *confirm.Manager, p confirm.Prompt, in io.Reader, out io.Writer, assumeYes bool) (confirm.State, error) {
	results := make(chan error, 1)
	resolve := func(accept bool) {
		_, err := m.Resolve(ctx, p.ID, accept)
		results <- err
	}

	if assumeYes {
		go resolve(true)
	} else {
		fmt.Fprintf(out, "This will %s. Type 'yes' within %s to confirm: ",
			p.Description, time.Until(p.ExpiresAt).Round(time.Second))
		go func() {
			line, _ := bufio.NewReader(in).ReadString('\n')
			resolve(strings.EqualFold(strings.TrimSpace(line), "yes"))
		}()
	}

	final, err := m.Wait(ctx, p.ID)
	if err != nil {
		return confirm.Pending, err
	}
	if final.State != confirm.Confirmed {
		return final.State, nil
	}
	return final.State, <-results
}
