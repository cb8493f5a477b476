package controllers

import (
	"errors"
	"log"
	"sync"

	"skymock/app/export"
	"skymock/app/models"
	"skymock/app/repositories"
)

// Documents maps sessions to the theme their preview is drawn in. A live
// session attaches its form; sessions without one fall back to the stored
// theme preference.
type Documents struct {
	prefs repositories.PreferenceRepository
	live  sync.Map
}

// NewDocuments creates a registry backed by prefs, which may be nil.
func NewDocuments(prefs repositories.PreferenceRepository) *Documents {
	return &Documents{prefs: prefs}
}

// Attach makes doc the session's document until the returned func is called.
func (d *Documents) Attach(sessionID string, doc export.Document) func() {
	d.live.Store(sessionID, doc)
	return func() {
		d.live.CompareAndDelete(sessionID, doc)
	}
}

// For returns the session's document.
func (d *Documents) For(sessionID string) export.Document {
	if doc, ok := d.live.Load(sessionID); ok {
		return doc.(export.Document)
	}
	return &prefsDocument{prefs: d.prefs, sessionID: sessionID}
}

// prefsDocument reads and writes the session's stored theme.
type prefsDocument struct {
	prefs     repositories.PreferenceRepository
	sessionID string
}

func (p *prefsDocument) Theme() models.Theme {
	if p.prefs == nil {
		return models.ThemeLight
	}
	theme, err := p.prefs.GetTheme(p.sessionID)
	if err != nil {
		if !errors.Is(err, repositories.ErrNotFound) {
			log.Printf("[theme] failed to load for %s: %v", p.sessionID, err)
		}
		return models.ThemeLight
	}
	return theme
}

func (p *prefsDocument) SetTheme(theme models.Theme) {
	if p.prefs == nil {
		return
	}
	if err := p.prefs.SetTheme(p.sessionID, theme); err != nil {
		log.Printf("[theme] failed to save for %s: %v", p.sessionID, err)
	}
}
