package commands

import (
	"fmt"

	"translatorhub/internal/languages"

	"github.com/spf13/cobra"
)

// LanguagesCommand lists the supported languages in picker order
func LanguagesCommand(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "languages",
		Short: "List the supported languages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			for _, l := range languages.Default().All() {
				marker := ""
				switch string(l.Code) {
				case env.Config.Defaults.SourceLanguage:
					marker = "  (source)"
				case env.Config.Defaults.TargetLanguage:
					marker = "  (target)"
				}
				if _, err := fmt.Fprintf(out, "%-4s %s%s\n", l.Code, l.Display(), marker); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
