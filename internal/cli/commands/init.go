package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/tabular/internal/config"
	"github.com/leapstack-labs/tabular/internal/model"
	"github.com/leapstack-labs/tabular/internal/state"
)

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	var force bool
	var name string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a new model database",
		Long: `Initialize a new model database at the configured path.

The database holds a single model tree. Use --name to set the root
node's name, and --force to replace an existing database.`,
		Example: `  # Initialize model.db in the current directory
  tabular init

  # Initialize a named model at an explicit path
  tabular init --model contoso.db --name Contoso`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := getConfig()
			logger := config.GetLogger(cmd.Context())

			if _, err := os.Stat(cfg.ModelPath); err == nil && !force {
				return fmt.Errorf("%s already exists. Use --force to overwrite", cfg.ModelPath)
			}
			if force {
				_ = os.Remove(cfg.ModelPath)
			}

			modelName := cfg.ModelName
			if name != "" {
				modelName = name
			}

			store := state.NewSQLiteStore()
			if err := store.Open(cfg.ModelPath); err != nil {
				return err
			}
			defer store.Close()

			if err := store.SaveModel(model.NewGraph(modelName)); err != nil {
				return err
			}

			logger.Debug("initialized model database", "path", cfg.ModelPath, "name", modelName)
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Initialized model %q at %s\n", modelName, cfg.ModelPath)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing model database")
	cmd.Flags().StringVar(&name, "name", "", "Name of the model root (default from config)")

	return cmd
}
