package cli

import (
	"fmt"

	"memberledger/internal/features/audit_logs"
	time_parser "memberledger/internal/util/time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func NewAuditLogCommand() *cobra.Command {
	var parent, actor, before string
	var limit, offset int

	cmd := &cobra.Command{
		Use:   "audit-log",
		Short: "Print audit entries of a parent or an actor, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			beforeDate, err := time_parser.ParseOptionalTimestamp(before)
			if err != nil {
				return fmt.Errorf("invalid --before: %w", err)
			}

			request := &audit_logs.GetAuditLogsRequest{Limit: limit, Offset: offset, BeforeDate: beforeDate}
			service := audit_logs.GetAuditLogService()

			switch {
			case parent != "":
				parentID, err := uuid.Parse(parent)
				if err != nil {
					return fmt.Errorf("invalid --parent: %w", err)
				}

				response, err := service.GetParentAuditLogs(parentID, request)
				if err != nil {
					return err
				}

				return writeJSON(cmd.OutOrStdout(), response)
			case actor != "":
				actorID, err := uuid.Parse(actor)
				if err != nil {
					return fmt.Errorf("invalid --actor: %w", err)
				}

				response, err := service.GetActorAuditLogs(actorID, request)
				if err != nil {
					return err
				}

				return writeJSON(cmd.OutOrStdout(), response)
			default:
				return fmt.Errorf("one of --parent or --actor is required")
			}
		},
	}

	cmd.Flags().StringVar(&parent, "parent", "", "parent id")
	cmd.Flags().StringVar(&actor, "actor", "", "actor id")
	cmd.Flags().StringVar(&before, "before", "", "only entries created before this instant")
	cmd.Flags().IntVar(&limit, "limit", 100, "maximum number of entries")
	cmd.Flags().IntVar(&offset, "offset", 0, "number of entries to skip")
	cmd.MarkFlagsMutuallyExclusive("parent", "actor")

	return cmd
}
