package cli

import (
	"fmt"

	"memberledger/internal/cache"
	"memberledger/internal/storage"
	cache_utils "memberledger/internal/util/cache"
	"memberledger/internal/util/logger"

	"github.com/spf13/cobra"
)

func NewMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logger.GetLogger()

			if err := cache_utils.CheckConnection(cache.GetCache()); err != nil {
				log.Warn("Cache is unreachable, member lists will not be cached", "error", err)
			}

			log.Info("Running database migrations...")

			if err := storage.Migrate(storage.GetDb()); err != nil {
				return err
			}

			log.Info("Database migrations completed successfully")
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")

			return nil
		},
	}
}
