package cli

import (
	"fmt"
	"log/slog"

	"memberledger/internal/config"
	memberships_services "memberledger/internal/features/memberships/services"
	"memberledger/internal/util/logger"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

type migrateFunc func(oldID, newID, actorID uuid.UUID) (*memberships_services.MigrationResult, error)

type mergeOptions struct {
	from  string
	into  string
	actor string
}

func NewMergeUserCommand() *cobra.Command {
	return newMergeCommand(
		"merge-user",
		"Move every membership of a duplicate user onto the surviving user",
		func(services *memberships_services.MembershipServices) migrateFunc {
			return services.Merge.MigrateUser
		},
	)
}

func NewMergeProfileCommand() *cobra.Command {
	return newMergeCommand(
		"merge-profile",
		"Move every membership of a duplicate profile onto the surviving profile",
		func(services *memberships_services.MembershipServices) migrateFunc {
			return services.Merge.MigrateProfile
		},
	)
}

func newMergeCommand(
	use, short string,
	pick func(*memberships_services.MembershipServices) migrateFunc,
) *cobra.Command {
	opts := &mergeOptions{}

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fromID, intoID, actorID, err := opts.parse()
			if err != nil {
				return err
			}

			result, err := runMerge(
				logger.GetLogger(),
				pick(memberships_services.GetMembershipServices()),
				fromID, intoID, actorID,
				config.GetEnv().MergeRetryAttempts,
			)
			if err != nil {
				return err
			}

			fmt.Fprintf(
				cmd.OutOrStdout(),
				"merged %d parents, moved %d records from %s to %s\n",
				result.MergedParents,
				result.ReassignedRecords,
				fromID,
				intoID,
			)

			return nil
		},
	}

	cmd.Flags().StringVar(&opts.from, "from", "", "id of the duplicate being merged away")
	cmd.Flags().StringVar(&opts.into, "into", "", "id of the surviving identity")
	cmd.Flags().StringVar(&opts.actor, "actor", "", "user id recorded as the actor of the merge")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("into")
	_ = cmd.MarkFlagRequired("actor")

	return cmd
}

func (o *mergeOptions) parse() (uuid.UUID, uuid.UUID, uuid.UUID, error) {
	fromID, err := uuid.Parse(o.from)
	if err != nil {
		return uuid.Nil, uuid.Nil, uuid.Nil, fmt.Errorf("invalid --from: %w", err)
	}

	intoID, err := uuid.Parse(o.into)
	if err != nil {
		return uuid.Nil, uuid.Nil, uuid.Nil, fmt.Errorf("invalid --into: %w", err)
	}

	actorID, err := uuid.Parse(o.actor)
	if err != nil {
		return uuid.Nil, uuid.Nil, uuid.Nil, fmt.Errorf("invalid --actor: %w", err)
	}

	return fromID, intoID, actorID, nil
}

// runMerge runs migrate until it succeeds, fails for a reason other than a
// lost race, or runs out of attempts. Each attempt starts from fresh state.
func runMerge(
	log *slog.Logger,
	migrate migrateFunc,
	fromID, intoID, actorID uuid.UUID,
	attempts int,
) (*memberships_services.MigrationResult, error) {
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		result, err := migrate(fromID, intoID, actorID)
		if err == nil {
			return result, nil
		}

		if !memberships_services.IsRetryable(err) {
			return nil, err
		}

		lastErr = err
		log.Warn("Merge lost a race with a concurrent write", "attempt", attempt, "error", err)
	}

	return nil, fmt.Errorf("merge failed after %d attempts: %w", attempts, lastErr)
}
