package cli

import (
	"encoding/json"
	"fmt"
	"io"

	memberships_services "memberledger/internal/features/memberships/services"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// Variants lists the accepted --variant values.
var Variants = []string{"project", "proposal", "sponsor", "organization"}

var reorderableVariants = []string{"project", "proposal", "sponsor"}

func NewMembersCommand() *cobra.Command {
	var variant, parent string

	cmd := &cobra.Command{
		Use:   "members",
		Short: "Print the active members of a parent in display order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			parentID, err := uuid.Parse(parent)
			if err != nil {
				return fmt.Errorf("invalid --parent: %w", err)
			}

			members, err := activeMembers(memberships_services.GetMembershipServices(), variant, parentID)
			if err != nil {
				return err
			}

			return writeJSON(cmd.OutOrStdout(), members)
		},
	}

	cmd.Flags().StringVar(&variant, "variant", "project", fmt.Sprintf("membership variant %v", Variants))
	cmd.Flags().StringVar(&parent, "parent", "", "parent id")
	_ = cmd.MarkFlagRequired("parent")

	return cmd
}

func NewResequenceCommand() *cobra.Command {
	var variant, parent string

	cmd := &cobra.Command{
		Use:   "resequence",
		Short: "Renumber the active members of a parent 1..n keeping their order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			parentID, err := uuid.Parse(parent)
			if err != nil {
				return fmt.Errorf("invalid --parent: %w", err)
			}

			if err := resequence(memberships_services.GetMembershipServices(), variant, parentID); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "resequenced %s members of %s\n", variant, parentID)
			return nil
		},
	}

	cmd.Flags().StringVar(&variant, "variant", "project", fmt.Sprintf("membership variant %v", reorderableVariants))
	cmd.Flags().StringVar(&parent, "parent", "", "parent id")
	_ = cmd.MarkFlagRequired("parent")

	return cmd
}

func activeMembers(
	services *memberships_services.MembershipServices,
	variant string,
	parentID uuid.UUID,
) (any, error) {
	switch variant {
	case "project":
		return services.Projects.Queries.GetActiveMembers(parentID)
	case "proposal":
		return services.Proposals.Queries.GetActiveMembers(parentID)
	case "sponsor":
		return services.Sponsors.Queries.GetActiveMembers(parentID)
	case "organization":
		return services.Organizations.Queries.GetActiveMembers(parentID)
	default:
		return nil, fmt.Errorf("unknown variant %q: must be one of %v", variant, Variants)
	}
}

func resequence(services *memberships_services.MembershipServices, variant string, parentID uuid.UUID) error {
	switch variant {
	case "project":
		return services.Projects.Sequence.Resequence(parentID)
	case "proposal":
		return services.Proposals.Sequence.Resequence(parentID)
	case "sponsor":
		return services.Sponsors.Sequence.Resequence(parentID)
	default:
		return fmt.Errorf("variant %q is not reorderable: must be one of %v", variant, reorderableVariants)
	}
}

func writeJSON(w io.Writer, value any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}
