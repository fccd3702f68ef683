package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func countriesCmd(opts *options) *cobra.Command {
	var lang string
	cmd := &cobra.Command{
		Use:   "countries",
		Short: "List the country table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := opts.countries()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, code := range table.Codes() {
				c := table.Get(code)
				fmt.Fprintf(out, "%-4s %-28s id=%-20s phone=%s %-13s %s regions=%d\n",
					c.Code, c.Name(lang), c.NationalID.Mask, c.Phone.DialCode, c.Phone.Mask,
					c.Currency.Symbol(lang), len(c.Regions))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&lang, "lang", "en", "label language (en|ar)")
	return cmd
}
