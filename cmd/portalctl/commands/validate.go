package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"assistance-portal/internal/form/validators"
	"assistance-portal/internal/models"
)

func validateCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file.json>",
		Short: "Validate an application document and report every failing field",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			doc, err := readDocument(data)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			table, err := opts.countries()
			if err != nil {
				return err
			}

			errs := validators.New(table).ValidateDocument(doc)
			out := cmd.OutOrStdout()
			if len(errs) == 0 {
				fmt.Fprintln(out, "valid")
				return nil
			}
			for _, e := range errs {
				fmt.Fprintf(out, "step %d  %-22s %-18s %s\n", validators.StepOf(e.Field), e.Field, e.Code, e.Message)
			}
			return fmt.Errorf("%d field errors", len(errs))
		},
	}
}

// readDocument accepts a bare document or a stored session envelope.
func readDocument(data []byte) (*models.ApplicationDocument, error) {
	var probe struct {
		FormData *models.ApplicationDocument `json:"formData"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, err
	}
	if probe.FormData != nil {
		return probe.FormData, nil
	}
	doc := &models.ApplicationDocument{}
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, err
	}
	return doc, nil
}
