package wizard

import (
	"assistance-portal/internal/form/format"
	"assistance-portal/internal/form/validators"
	"assistance-portal/internal/models"
)

// ReviewItem is one display row of the review page.
type ReviewItem struct {
	Field    string `json:"field"`
	LabelKey string `json:"labelKey"`
	Value    string `json:"value"`
	// ValueKey is set for option fields so the caller can translate them.
	ValueKey string `json:"valueKey,omitempty"`
	Error    string `json:"error,omitempty"`
}

// ReviewSection groups the rows of one step.
type ReviewSection struct {
	Step     int          `json:"step"`
	Key      string       `json:"key"`
	LabelKey string       `json:"labelKey"`
	Complete bool         `json:"complete"`
	Items    []ReviewItem `json:"items"`
}

// Review renders the document for the review page using the session's
// language. Stored values are not modified.
func (c *Controller) Review() []ReviewSection {
	doc := &c.sess.Document
	lang := c.prefs.Language
	ctry := c.validator.Countries().Get(doc.Country)

	var sections []ReviewSection
	for _, step := range validators.Steps {
		if step.Number == validators.StepReview {
			continue
		}
		errs := c.validator.ValidateStep(step.Number, doc)
		section := ReviewSection{
			Step:     step.Number,
			Key:      step.Key,
			LabelKey: step.LabelKey,
			Complete: len(errs) == 0,
		}
		for _, f := range step.Fields {
			raw := doc.Value(f.Name)
			item := ReviewItem{
				Field:    f.Name,
				LabelKey: "fields." + f.Name,
				Value:    format.Field(f.Name, raw, ctry, lang),
			}
			switch f.Name {
			case models.FieldGender, models.FieldMaritalStatus, models.FieldEmploymentStatus, models.FieldHousingStatus:
				if raw != "" {
					item.ValueKey = "options." + f.Name + "." + raw
				}
			}

			if e := validators.ErrorsForField(errs, f.Name); len(e) > 0 {
				item.Error = string(e[0].Code)
			}
			section.Items = append(section.Items, item)
		}
		sections = append(sections, section)
	}
	return sections
}
