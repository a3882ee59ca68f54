package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
	"github.com/spf13/cobra"

	"github.com/Smackface/go-easy-apply/internal/config"
)

// settingsSchema describes the settings file under its mapstructure keys.
func settingsSchema() *jsonschema.Schema {
	r := &jsonschema.Reflector{
		FieldNameTag:               "mapstructure",
		ExpandedStruct:             true,
		AllowAdditionalProperties:  false,
		RequiredFromJSONSchemaTags: true,
	}
	s := r.Reflect(&config.Config{})
	s.Title = "easy-apply settings"
	return s
}

func newSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:               "schema",
		Short:             "Print the JSON schema of the settings file",
		Args:              cobra.NoArgs,
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, err := json.MarshalIndent(settingsSchema(), "", "  ")
			if err != nil {
				return fmt.Errorf("failed to encode schema: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return err
		},
	}
}
