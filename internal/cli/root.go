package cli

import (
	"github.com/spf13/cobra"
)

// NewRootCommand creates the root command of the maintenance CLI.
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "memberledger",
		Short: "Membership ledger maintenance",
		Long: `Maintenance entry points for the membership revision ledger.

Applies schema migrations, consolidates duplicate identities and inspects
the active members and audit trail of a parent.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(NewMigrateCommand())
	cmd.AddCommand(NewMergeUserCommand())
	cmd.AddCommand(NewMergeProfileCommand())
	cmd.AddCommand(NewMembersCommand())
	cmd.AddCommand(NewResequenceCommand())
	cmd.AddCommand(NewAuditLogCommand())

	return cmd
}
