package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"assistance-portal/internal/form/format"
	"assistance-portal/internal/form/locale"
	"assistance-portal/internal/form/validators"
)

func formatCmd(opts *options) *cobra.Command {
	var countryCode, lang string
	cmd := &cobra.Command{
		Use:   "format <field> <value>",
		Short: "Preview how a raw input is stored, validated and displayed",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			field, raw := args[0], args[1]
			if !validators.IsKnownField(field) {
				return fmt.Errorf("unknown field %q", field)
			}
			table, err := opts.countries()
			if err != nil {
				return err
			}
			ctry, err := table.Lookup(countryCode)
			if err != nil {
				return err
			}
			lang = locale.Preferences{Language: lang}.Normalize().Language

			v := validators.New(table)
			stored := v.Normalize(field, raw, countryCode)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "stored:  %s\n", stored)
			fmt.Fprintf(out, "display: %s\n", format.Field(field, stored, ctry, lang))
			if e := v.ValidateField(field, stored, countryCode); e != nil {
				fmt.Fprintf(out, "error:   %s %s\n", e.Code, e.Message)
			} else {
				fmt.Fprintln(out, "error:   none")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&countryCode, "country", "UAE", "country code")
	cmd.Flags().StringVar(&lang, "lang", "en", "display language (en|ar)")
	return cmd
}
