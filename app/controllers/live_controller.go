package controllers

import (
	"context"
	"encoding/json"
	"log"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"skymock/app/form"
	"skymock/app/middleware"
	"skymock/app/models"
	"skymock/app/picker"
	"skymock/app/render"
	"skymock/app/repositories"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 << 10
)

// Message types exchanged on /api/live.
const (
	MsgSet         = "set"
	MsgDefaults    = "defaults"
	MsgReset       = "reset"
	MsgRandomize   = "randomize"
	MsgToggleTheme = "toggleTheme"
	MsgExportTheme = "exportTheme"
	MsgFetchPosts  = "fetchPosts"
	MsgURLInput    = "urlInput"
	MsgPrevPage    = "prevPage"
	MsgNextPage    = "nextPage"
	MsgSelect      = "select"
	MsgRemoveImage = "removeImage"

	MsgPreview = "preview"
	MsgPicker  = "picker"
	MsgNotice  = "notice"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// LiveMessage is a client to server message.
type LiveMessage struct {
	Type   string `json:"type"`
	Field  string `json:"field,omitempty"`
	Value  string `json:"value,omitempty"`
	Handle string `json:"handle,omitempty"`
	URL    string `json:"url,omitempty"`
	Index  int    `json:"index,omitempty"`
	Theme  string `json:"theme,omitempty"`
}

// PreviewMessage carries a freshly rendered preview.
type PreviewMessage struct {
	Type        string              `json:"type"`
	HTML        string              `json:"html"`
	Characters  form.CharacterCount `json:"characters"`
	Theme       models.Theme        `json:"theme"`
	ExportTheme models.Theme        `json:"exportTheme"`
	Post        models.PostData     `json:"post"`
}

// PickerMessage carries the picker state.
type PickerMessage struct {
	Type      string `json:"type"`
	Status    string `json:"status"`
	Page      int    `json:"page"`
	PageCount int    `json:"pageCount"`
	HasPrev   bool   `json:"hasPrev"`
	HasNext   bool   `json:"hasNext"`
	ListHTML  string `json:"listHtml"`
	Error     string `json:"error,omitempty"`
}

// NoticeMessage is a transient notification.
type NoticeMessage struct {
	Type    string       `json:"type"`
	Level   picker.Level `json:"level"`
	Message string       `json:"message"`
}

// LiveOptions wires a LiveController.
type LiveOptions struct {
	Feed     picker.Feed
	Renderer *render.Renderer
	Prefs    repositories.PreferenceRepository
	Picker   picker.Config
	Now      func() time.Time

	// Documents, when set, exposes each session's form to exports.
	Documents *Documents
}

// LiveController runs one compose session per websocket connection
type LiveController struct {
	opts LiveOptions
}

// NewLiveController creates a new LiveController
func NewLiveController(opts LiveOptions) *LiveController {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &LiveController{opts: opts}
}

// Serve handles GET /api/live
func (lc *LiveController) Serve(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[WS] Upgrade error: %v", err)
		return
	}

	sessionID := middleware.SessionID(r.Context())
	ctx, cancel := context.WithCancel(context.Background())
	s := newLiveSession(ctx, conn, sessionID, lc.opts)
	detach := func() {}
	if lc.opts.Documents != nil {
		detach = lc.opts.Documents.Attach(sessionID, s.form)
	}
	defer func() {
		detach()
		cancel()
		s.close()
	}()

	log.Printf("[WS] Session opened: %s", sessionID)
	go s.pingLoop(ctx)
	s.readLoop()
	log.Printf("[WS] Session closed: %s", sessionID)
}

// liveSession owns the form and picker of one connection.
type liveSession struct {
	id       string
	conn     *websocket.Conn
	writeMu  sync.Mutex
	form     *form.Form
	picker   *picker.Picker
	renderer *render.Renderer
	now      func() time.Time
	rng      *rand.Rand
	unsub    func()
	closed   bool
}

func newLiveSession(ctx context.Context, conn *websocket.Conn, sessionID string, opts LiveOptions) *liveSession {
	s := &liveSession{
		id:       sessionID,
		conn:     conn,
		form:     form.New(sessionID, opts.Prefs),
		renderer: opts.Renderer,
		now:      opts.Now,
		rng:      rand.New(rand.NewSource(opts.Now().UnixNano())),
	}
	s.form.ApplyDefaults(s.now())
	s.unsub = s.form.Subscribe(s.sendSnapshot)
	s.picker = picker.New(ctx, opts.Feed, opts.Picker, picker.Handlers{
		OnChange: s.sendPicker,
		OnRender: s.sendSelected,
		OnNotify: s.sendNotice,
	})

	s.sendSnapshot(s.form.Snapshot())
	s.sendPicker(s.picker.State())
	return s
}

func (s *liveSession) close() {
	s.unsub()
	s.picker.Close()
	s.writeMu.Lock()
	s.closed = true
	s.writeMu.Unlock()
	s.conn.Close()
}

func (s *liveSession) readLoop() {
	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[WS] Unexpected close error for session %s: %v", s.id, err)
			}
			return
		}

		var msg LiveMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Printf("[WS] Bad message from session %s: %v", s.id, err)
			s.sendNotice(picker.Notify{Level: picker.LevelError, Message: "Invalid message"})
			continue
		}
		s.handle(msg)
	}
}

func (s *liveSession) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.writeMu.Lock()
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			err := s.conn.WriteMessage(websocket.PingMessage, nil)
			s.writeMu.Unlock()
			if err != nil {
				log.Printf("[WS] Error sending ping to session %s: %v", s.id, err)
				return
			}
		}
	}
}

func (s *liveSession) handle(msg LiveMessage) {
	switch msg.Type {
	case MsgSet:
		field, err := form.ParseField(msg.Field)
		if err != nil {
			s.sendNotice(picker.Notify{Level: picker.LevelError, Message: err.Error()})
			return
		}
		if err := s.form.Set(field, msg.Value); err != nil {
			s.sendNotice(picker.Notify{Level: picker.LevelError, Message: err.Error()})
		}
	case MsgDefaults:
		s.form.ApplyDefaults(s.now())
	case MsgReset:
		s.form.Reset(s.now())
		s.picker.Dispatch(picker.Reset{})
	case MsgRandomize:
		s.form.RandomizeMetrics(s.rng)
		s.sendNotice(picker.Notify{Level: picker.LevelSuccess, Message: "Metrics randomized! 🎲"})
	case MsgToggleTheme:
		s.form.ToggleTheme()
	case MsgExportTheme:
		s.form.SetExportTheme(models.ParseTheme(msg.Theme))
	case MsgFetchPosts:
		s.picker.Dispatch(picker.FetchPosts{Handle: msg.Handle})
	case MsgURLInput:
		s.picker.Dispatch(picker.URLChanged{URL: msg.URL})
	case MsgPrevPage:
		s.picker.Dispatch(picker.PrevPage{})
	case MsgNextPage:
		s.picker.Dispatch(picker.NextPage{})
	case MsgSelect:
		s.picker.Dispatch(picker.SelectPost{Index: msg.Index})
	case MsgRemoveImage:
		s.form.RemovePostImage()
	default:
		log.Printf("[WS] Unknown message type from session %s: %q", s.id, msg.Type)
		s.sendNotice(picker.Notify{Level: picker.LevelError, Message: "Unknown message type: " + msg.Type})
	}
}

func (s *liveSession) sendSnapshot(snap form.Snapshot) {
	s.sendPreview(snap.Data, snap)
}

// sendSelected previews a post picked from the feed. The form is left alone.
func (s *liveSession) sendSelected(data models.PostData) {
	snap := s.form.Snapshot()
	snap.Characters = form.CountCharacters(data.Content)
	s.sendPreview(data, snap)
}

func (s *liveSession) sendPreview(data models.PostData, snap form.Snapshot) {
	html, err := s.renderer.Render(data)
	if err != nil {
		log.Printf("[WS] Render failed for session %s: %v", s.id, err)
		s.sendNotice(picker.Notify{Level: picker.LevelError, Message: "Failed to render preview"})
		return
	}
	s.write(PreviewMessage{
		Type:        MsgPreview,
		HTML:        string(html),
		Characters:  snap.Characters,
		Theme:       snap.Theme,
		ExportTheme: snap.ExportTheme,
		Post:        data,
	})
}

func (s *liveSession) sendPicker(state picker.State) {
	list, err := s.renderer.RenderList(state.PagePosts())
	if err != nil {
		log.Printf("[WS] List render failed for session %s: %v", s.id, err)
	}
	s.write(PickerMessage{
		Type:      MsgPicker,
		Status:    string(state.Status),
		Page:      state.Cursor.Page + 1,
		PageCount: state.PageCount(),
		HasPrev:   state.HasPrev(),
		HasNext:   state.HasNext(),
		ListHTML:  string(list),
		Error:     state.Error,
	})
}

func (s *liveSession) sendNotice(n picker.Notify) {
	s.write(NoticeMessage{Type: MsgNotice, Level: n.Level, Message: n.Message})
}

func (s *liveSession) write(v interface{}) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.closed {
		return
	}
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := s.conn.WriteJSON(v); err != nil {
		log.Printf("[WS] Error writing message for session %s: %v", s.id, err)
	}
}
