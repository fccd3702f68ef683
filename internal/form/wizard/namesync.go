package wizard

import (
	"errors"
	"strings"

	"assistance-portal/internal/models"
)

var (
	ErrNotSyncable        = errors.New("FIELD_NOT_SYNCABLE")
	ErrNothingToTranslate = errors.New("NOTHING_TO_TRANSLATE")
	ErrTargetEdited       = errors.New("TARGET_EDITED_BY_USER")
)

// Translation directions understood by the AI proxy.
const (
	DirectionToArabic  = "toArabic"
	DirectionToEnglish = "toEnglish"
)

// TranslationRequest captures the state of both name fields when a
// translation was requested. It is applied only if neither field was edited
// in the meantime.
type TranslationRequest struct {
	SourceField string `json:"sourceField"`
	TargetField string `json:"targetField"`
	Direction   string `json:"direction"`
	Text        string `json:"text"`

	sourceSeq   uint64
	targetSeq   uint64
	targetValue string
}

// RequestTranslation prepares a name translation from field into the other
// language's name field. The target must be empty or hold a previous
// automatic translation; a typed value always wins.
func (c *Controller) RequestTranslation(field string) (*TranslationRequest, error) {
	if c.submitted {
		return nil, ErrAlreadySubmitted
	}

	var target, direction string
	switch field {
	case models.FieldFullNameEn:
		target, direction = models.FieldFullNameAr, DirectionToArabic
	case models.FieldFullNameAr:
		target, direction = models.FieldFullNameEn, DirectionToEnglish
	default:
		return nil, ErrNotSyncable
	}

	doc := &c.sess.Document
	text := strings.TrimSpace(doc.Value(field))
	if text == "" {
		return nil, ErrNothingToTranslate
	}
	targetValue := doc.Value(target)
	if targetValue != "" && !c.autoFilled[target] {
		return nil, ErrTargetEdited
	}

	return &TranslationRequest{
		SourceField: field,
		TargetField: target,
		Direction:   direction,
		Text:        text,
		sourceSeq:   c.editSeq[field],
		targetSeq:   c.editSeq[target],
		targetValue: targetValue,
	}, nil
}

// ApplyTranslation writes translated into the target field if the request
// is still current. It reports whether the value was applied.
func (c *Controller) ApplyTranslation(req *TranslationRequest, translated string) bool {
	if c.submitted || req == nil {
		return false
	}
	doc := &c.sess.Document
	current := c.editSeq[req.SourceField] == req.sourceSeq &&
		c.editSeq[req.TargetField] == req.targetSeq &&
		strings.TrimSpace(doc.Value(req.SourceField)) == req.Text &&
		doc.Value(req.TargetField) == req.targetValue
	if !current {
		c.logger.Debug("dropping stale translation", map[string]interface{}{"field": req.TargetField})
		return false
	}

	translated = strings.TrimSpace(translated)
	if translated == "" {
		return false
	}

	c.assign(req.TargetField, c.validator.Normalize(req.TargetField, translated, doc.Country))
	c.autoFilled[req.TargetField] = true
	c.touch()
	c.scheduleSave()
	return true
}
