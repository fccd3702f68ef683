package wizard

import (
	"context"
	"fmt"

	"assistance-portal/internal/form/validators"
)

// CancelChoice is the applicant's answer to the leave prompt.
type CancelChoice string

const (
	CancelAsk     CancelChoice = ""
	CancelDiscard CancelChoice = "discard"
	CancelSave    CancelChoice = "save"
	CancelStay    CancelChoice = "stay"
)

// CancelResult tells the caller whether the applicant may leave.
type CancelResult struct {
	Exited      bool `json:"exited"`
	NeedsChoice bool `json:"needsChoice"`
}

// Cancel handles a request to leave the form. With nothing worth keeping it
// exits at once; otherwise CancelAsk returns NeedsChoice and the applicant
// picks discard, save or stay.
func (c *Controller) Cancel(ctx context.Context, choice CancelChoice) (CancelResult, error) {
	switch choice {
	case CancelAsk:
		if !c.HasMeaningfulData() || !c.HasUnsavedChanges() {
			return CancelResult{Exited: true}, nil
		}
		return CancelResult{NeedsChoice: true}, nil

	case CancelStay:
		return CancelResult{}, nil

	case CancelSave:
		if err := c.Save(ctx); err != nil {
			return CancelResult{}, err
		}
		return CancelResult{Exited: true}, nil

	case CancelDiscard:
		if err := c.discard(ctx); err != nil {
			return CancelResult{}, err
		}
		return CancelResult{Exited: true}, nil
	}
	return CancelResult{}, fmt.Errorf("%w: %q", ErrInvalidChoice, choice)
}

// discard reverts to the last persisted snapshot, or clears everything when
// nothing was ever persisted. The store is rewritten so a pending autosave of
// the discarded edits cannot survive.
func (c *Controller) discard(ctx context.Context) error {
	base := c.persisted()
	if base == nil {
		return c.Reset(ctx)
	}
	c.sess = *base
	c.fieldErrors = make(map[string]validators.ValidationError)
	c.editSeq = make(map[string]uint64)
	c.autoFilled = make(map[string]bool)
	return c.Save(ctx)
}
