package form

import (
	"errors"
	"fmt"
	"io"
	"log"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"skymock/app/ingest"
	"skymock/app/models"
	"skymock/app/repositories"
)

// Sample values seeded into empty fields.
const (
	DefaultDisplayName = "John Doe"
	DefaultHandle      = "@johndoe.bsky.social"
	DefaultContent     = "Just testing out this awesome Bluesky post generator! 🚀"
	DefaultLikes       = 42
	DefaultReposts     = 12
	DefaultReplies     = 8
)

// Snapshot is an immutable copy of the form handed to subscribers.
type Snapshot struct {
	Data        models.PostData `json:"post"`
	Theme       models.Theme    `json:"theme"`
	ExportTheme models.Theme    `json:"exportTheme"`
	Characters  CharacterCount  `json:"characters"`
}

// Form is the compose-from-scratch store. All reads and writes go through
// it and every change is announced to subscribers.
type Form struct {
	mutex       sync.Mutex
	values      map[Field]string
	theme       models.Theme
	exportTheme models.Theme

	sessionID string
	prefs     repositories.PreferenceRepository

	subscribers map[int]func(Snapshot)
	nextSubID   int
}

// New creates a Form for a session, restoring the persisted theme.
// prefs may be nil, in which case the theme lives only in memory.
func New(sessionID string, prefs repositories.PreferenceRepository) *Form {
	f := &Form{
		values:      make(map[Field]string, len(Fields)),
		theme:       models.ThemeLight,
		exportTheme: models.ThemeLight,
		sessionID:   sessionID,
		prefs:       prefs,
		subscribers: make(map[int]func(Snapshot)),
	}
	if prefs != nil {
		theme, err := prefs.GetTheme(sessionID)
		switch {
		case err == nil:
			f.theme = theme
		case !errors.Is(err, repositories.ErrNotFound):
			log.Printf("[form] failed to load theme for %s: %v", sessionID, err)
		}
	}
	return f
}

// Get returns the raw value of a field.
func (f *Form) Get(field Field) string {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return f.values[field]
}

// Set writes a raw field value.
func (f *Form) Set(field Field, value string) error {
	if _, err := ParseField(string(field)); err != nil {
		return err
	}
	f.update(func() {
		f.values[field] = value
	})
	return nil
}

// GetFormData reads the current fields into a PostData.
func (f *Form) GetFormData() models.PostData {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return f.dataLocked()
}

func (f *Form) dataLocked() models.PostData {
	v := f.values
	return models.PostData{
		PostType:    models.ParsePostType(v[FieldPostType]),
		DisplayName: v[FieldDisplayName],
		Handle:      v[FieldHandle],
		Avatar:      v[FieldAvatar],
		Content:     v[FieldContent],
		PostImage:   v[FieldPostImage],
		Reposts:     parseCount(v[FieldReposts]),
		Likes:       parseCount(v[FieldLikes]),
		Replies:     parseCount(v[FieldReplies]),
		Date:        v[FieldDate],
		Time:        v[FieldTime],
	}
}

// ApplyDefaults seeds sample values into fields that are still empty.
// Anything the user typed is left alone.
func (f *Form) ApplyDefaults(now time.Time) {
	defaults := defaultValues(now)
	defaults[FieldContent] = DefaultContent

	f.update(func() {
		for field, value := range defaults {
			if f.values[field] == "" {
				f.values[field] = value
			}
		}
	})
}

// Reset starts a fresh composition: sample values with empty content, a
// plain post, light export theme and no images.
func (f *Form) Reset(now time.Time) {
	defaults := defaultValues(now)
	f.update(func() {
		f.values = make(map[Field]string, len(Fields))
		for field, value := range defaults {
			f.values[field] = value
		}
		f.exportTheme = models.ThemeLight
	})
}

func defaultValues(now time.Time) map[Field]string {
	return map[Field]string{
		FieldPostType:    string(models.PostTypePost),
		FieldDisplayName: DefaultDisplayName,
		FieldHandle:      DefaultHandle,
		FieldLikes:       strconv.Itoa(DefaultLikes),
		FieldReposts:     strconv.Itoa(DefaultReposts),
		FieldReplies:     strconv.Itoa(DefaultReplies),
		FieldDate:        now.Format(models.DateLayout),
		FieldTime:        now.Format(models.ShortTimeLayout),
	}
}

// RandomizeMetrics draws new engagement counts. Reposts fall in [0,70),
// likes in [10,310) and replies in [0,25).
func (f *Form) RandomizeMetrics(rng *rand.Rand) {
	reposts := rng.Intn(50) + rng.Intn(20)
	likes := rng.Intn(200) + rng.Intn(100) + 10
	replies := rng.Intn(15) + rng.Intn(10)

	f.update(func() {
		f.values[FieldReposts] = strconv.Itoa(reposts)
		f.values[FieldLikes] = strconv.Itoa(likes)
		f.values[FieldReplies] = strconv.Itoa(replies)
	})
}

// Theme is the document theme.
func (f *Form) Theme() models.Theme {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return f.theme
}

// SetTheme changes the document theme and persists it for the session.
func (f *Form) SetTheme(theme models.Theme) {
	f.update(func() {
		f.theme = theme
	})
	if f.prefs != nil {
		if err := f.prefs.SetTheme(f.sessionID, theme); err != nil {
			log.Printf("[form] failed to save theme for %s: %v", f.sessionID, err)
		}
	}
}

// ToggleTheme flips the document theme and returns the new one.
func (f *Form) ToggleTheme() models.Theme {
	next := f.Theme().Toggle()
	f.SetTheme(next)
	return next
}

// ExportTheme is the theme used for the next export.
func (f *Form) ExportTheme() models.Theme {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return f.exportTheme
}

// SetExportTheme selects the export theme without touching the document.
func (f *Form) SetExportTheme(theme models.Theme) {
	f.update(func() {
		f.exportTheme = theme
	})
}

// CharacterCount is the counter for the current content.
func (f *Form) CharacterCount() CharacterCount {
	return CountCharacters(f.Get(FieldContent))
}

// Upload ingests an image and attaches it on success. On failure the form
// is left untouched.
func (f *Form) Upload(ing *ingest.Ingester, r io.Reader, size int64, role ingest.Role) (*ingest.Image, error) {
	img, err := ing.Ingest(r, size, role)
	if err != nil {
		return nil, err
	}
	if err := f.AttachImage(role, img); err != nil {
		return nil, err
	}
	return img, nil
}

// AttachImage places a processed image in the field for role.
func (f *Form) AttachImage(role ingest.Role, img *ingest.Image) error {
	var field Field
	switch role {
	case ingest.RoleAvatar:
		field = FieldAvatar
	case ingest.RolePostImage:
		field = FieldPostImage
	default:
		return fmt.Errorf("%w: %q", ingest.ErrUnknownRole, role)
	}
	return f.Set(field, img.DataURL())
}

// RemovePostImage clears the attached post image.
func (f *Form) RemovePostImage() {
	f.update(func() {
		delete(f.values, FieldPostImage)
	})
}

// Snapshot returns a copy of the current state.
func (f *Form) Snapshot() Snapshot {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return f.snapshotLocked()
}

func (f *Form) snapshotLocked() Snapshot {
	data := f.dataLocked()
	return Snapshot{
		Data:        data,
		Theme:       f.theme,
		ExportTheme: f.exportTheme,
		Characters:  CountCharacters(data.Content),
	}
}

// Subscribe registers fn to receive a snapshot after every change. The
// returned func removes the subscription.
func (f *Form) Subscribe(fn func(Snapshot)) func() {
	f.mutex.Lock()
	id := f.nextSubID
	f.nextSubID++
	f.subscribers[id] = fn
	f.mutex.Unlock()

	return func() {
		f.mutex.Lock()
		delete(f.subscribers, id)
		f.mutex.Unlock()
	}
}

// update applies a mutation and notifies subscribers outside the lock.
func (f *Form) update(mutate func()) {
	f.mutex.Lock()
	mutate()
	snap := f.snapshotLocked()
	subs := make([]func(Snapshot), 0, len(f.subscribers))
	for _, fn := range f.subscribers {
		subs = append(subs, fn)
	}
	f.mutex.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
}
