package models

import "time"

// WizardSession is the resumable in-progress state of one application form.
type WizardSession struct {
	ID           string              `json:"id"`
	Document     ApplicationDocument `json:"formData"`
	CurrentStep  int                 `json:"currentStep"`
	LastModified time.Time           `json:"lastModified"`
}

// Touch updates the last-modified timestamp.
func (s *WizardSession) Touch(now time.Time) {
	s.LastModified = now
}
