package chat

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Incoming and outgoing websocket events
const (
	EventUserInput       = "user_input"
	EventGUIContext      = "gui_context"
	EventNewChat         = "new_chat"
	EventUpdateUserInput = "update_user_input"
	EventGUIContextInput = "gui_context_input"
	EventUpdateGUI       = "update_gui"
	EventUpdateSpeech    = "update_speech"
)

// ExitCommand typed by the user stops the relay worker
const ExitCommand = "exit"

const (
	writeWait  = 10 * time.Second
	pongWait   = 360 * time.Second
	pingPeriod = 25 * time.Second
	sendBuffer = 32
)

// Assistant answers one chat turn
type Assistant interface {
	Chat(ctx context.Context, sessionID, text string) (string, error)
	Reset(ctx context.Context, sessionID string) error
}

// Systems lists the agent networks a new chat may select
type Systems interface {
	Available() []string
	Default() string
}

// Frame is the websocket message envelope
type Frame struct {
	Event      string `json:"event"`
	Data       any    `json:"data,omitempty"`
	GUIContext any    `json:"gui_context,omitempty"`
}

type inputKind int

const (
	inputUser inputKind = iota
	inputNewChat
)

type input struct {
	kind inputKind
	text string
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Relay connects browser websockets to the assistant. A single worker
// consumes inputs in order, so turns never overlap.
type Relay struct {
	assistant Assistant
	systems   Systems
	upgrader  websocket.Upgrader
	newID     func() string

	inputs      chan input
	guiContexts chan string
	done        chan struct{}
	doneOnce    sync.Once

	mu        sync.Mutex
	clients   map[*client]struct{}
	sessionID string
	system    string
}

func NewRelay(assistant Assistant, systems Systems) *Relay {
	r := &Relay{
		assistant: assistant,
		systems:   systems,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		newID:       uuid.NewString,
		inputs:      make(chan input, 64),
		guiContexts: make(chan string, 64),
		done:        make(chan struct{}),
		clients:     make(map[*client]struct{}),
	}
	r.sessionID = r.newID()
	if systems != nil {
		r.system = systems.Default()
	}
	return r
}

// Session returns the active chat session and system
func (r *Relay) Session() (sessionID, system string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessionID, r.system
}

// Done is closed when the worker stops
func (r *Relay) Done() <-chan struct{} {
	return r.done
}

// Run is the worker loop. It returns when ctx is done or the user types "exit".
func (r *Relay) Run(ctx context.Context) {
	defer r.doneOnce.Do(func() { close(r.done) })
	log.Info().Msg("🧵 Relay worker started")

	for {
		select {
		case <-ctx.Done():
			return
		case in := <-r.inputs:
			if !r.handle(ctx, in, "") {
				return
			}
		case gui := <-r.guiContexts:
			// a waiting user input takes the context with it
			select {
			case in := <-r.inputs:
				if !r.handle(ctx, in, gui) {
					return
				}
			default:
				r.respond(ctx, gui+r.drainGUIContext())
			}
		}
	}
}

// handle runs one input and reports whether the worker should keep going
func (r *Relay) handle(ctx context.Context, in input, gui string) bool {
	switch in.kind {
	case inputNewChat:
		r.resetSession(ctx, in.text)
		r.respond(ctx, gui)
	case inputUser:
		if strings.TrimSpace(in.text) == ExitCommand {
			log.Info().Msg("Relay worker exiting")
			return false
		}
		r.respond(ctx, in.text+gui+r.drainGUIContext())
	}
	return true
}

func (r *Relay) drainGUIContext() string {
	var b strings.Builder
	for {
		select {
		case gui := <-r.guiContexts:
			b.WriteString(gui)
		default:
			return b.String()
		}
	}
}

func (r *Relay) respond(ctx context.Context, text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	sessionID, _ := r.Session()

	reply, err := r.assistant.Chat(ctx, sessionID, text)
	if err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Msg("Assistant turn failed")
		r.broadcast(Frame{Event: EventUpdateSpeech, Data: "Sorry, something went wrong: " + err.Error()})
		return
	}

	gui, say := Split(ParseBlocks(reply))
	if gui != "" {
		r.broadcast(Frame{Event: EventUpdateGUI, Data: gui})
	}
	if say != "" {
		r.broadcast(Frame{Event: EventUpdateSpeech, Data: say})
	}
}

func (r *Relay) resetSession(ctx context.Context, system string) {
	if system == "" && r.systems != nil {
		system = r.systems.Default()
	}
	if system == "" {
		log.Warn().Msg("No available systems to initialize")
		return
	}

	r.mu.Lock()
	old := r.sessionID
	r.sessionID = r.newID()
	r.system = system
	r.mu.Unlock()

	if err := r.assistant.Reset(ctx, old); err != nil {
		log.Warn().Err(err).Str("session_id", old).Msg("Failed to reset session")
	}
	log.Info().Str("system", system).Msg("****New chat started****")
}

// enqueue hands an input to the worker unless it has stopped
func (r *Relay) enqueue(in input) {
	select {
	case r.inputs <- in:
	case <-r.done:
	}
}

func (r *Relay) enqueueGUI(gui string) {
	select {
	case r.guiContexts <- gui:
	case <-r.done:
	}
}

// HandleFrame applies one incoming frame
func (r *Relay) HandleFrame(raw []byte) error {
	var frame map[string]any
	if err := sonic.Unmarshal(raw, &frame); err != nil {
		return fmt.Errorf("invalid frame: %w", err)
	}

	event, _ := frame["event"].(string)
	switch event {
	case EventUserInput:
		text := stringify(frame["data"])
		r.broadcast(Frame{Event: EventUpdateUserInput, Data: text})
		r.enqueue(input{kind: inputUser, text: text})
	case EventGUIContext:
		r.broadcast(Frame{Event: EventGUIContextInput, GUIContext: frame["gui_context"]})
		r.enqueueGUI(stringify(frame["gui_context"]))
	case EventNewChat:
		system := ""
		switch data := frame["data"].(type) {
		case string:
			system = data
		case map[string]any:
			system, _ = data["system"].(string)
		}
		r.enqueue(input{kind: inputNewChat, text: system})
	default:
		return fmt.Errorf("unknown event %q", event)
	}
	return nil
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		s, err := sonic.MarshalString(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return s
	}
}

func (r *Relay) broadcast(frame Frame) {
	data, err := sonic.Marshal(frame)
	if err != nil {
		log.Error().Err(err).Str("event", frame.Event).Msg("Failed to encode frame")
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for c := range r.clients {
		select {
		case c.send <- data:
		default:
			// slow client; drop it rather than stall the worker
			delete(r.clients, c)
			close(c.send)
		}
	}
}

// ServeHTTP upgrades /chat to a websocket
func (r *Relay) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		log.Warn().Err(err).Msg("Websocket upgrade failed")
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	r.mu.Lock()
	r.clients[c] = struct{}{}
	r.mu.Unlock()
	log.Debug().Str("remote", req.RemoteAddr).Msg("Chat client connected")

	go r.writePump(c)
	r.readPump(c)
}

func (r *Relay) removeClient(c *client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.clients[c]; ok {
		delete(r.clients, c)
		close(c.send)
	}
}

func (r *Relay) readPump(c *client) {
	defer func() {
		r.removeClient(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(1 << 20)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Msg("Chat client read failed")
			}
			return
		}
		if err := r.HandleFrame(msg); err != nil {
			log.Warn().Err(err).Msg("Ignoring chat frame")
		}
	}
}

func (r *Relay) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Close disconnects every client
func (r *Relay) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for c := range r.clients {
		delete(r.clients, c)
		close(c.send)
	}
}
