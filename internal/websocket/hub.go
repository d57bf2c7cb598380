package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/geostat-assistant/server/domain/repositories"
	"github.com/geostat-assistant/server/usecase"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512 * 1024 // 512KB for audio chunks

	// Time allowed to answer one utterance, speech included.
	turnTimeout = 90 * time.Second

	sendBufferSize = 256
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Transcriber opens live speech recognition streams
type Transcriber interface {
	StartTranscription(ctx context.Context, config repositories.AudioConfig) (repositories.SpeechToTextStreaming, error)
}

// Speaker renders reply text as a stream of audio chunks
type Speaker interface {
	StreamSpeech(ctx context.Context, text, language string) (<-chan []byte, error)
}

// Responder produces the assistant's reply to a transcribed question
type Responder interface {
	ReplyVoice(ctx context.Context, sessionID, message string) (string, error)
}

// Hub maintains the set of active voice clients.
type Hub struct {
	// Registered clients, keyed by connection id.
	clients map[string]*Client

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	// Closed once Run has returned.
	done     chan struct{}
	doneOnce sync.Once

	// Mutex for thread-safe access to clients map
	mu sync.RWMutex

	transcriber Transcriber
	speaker     Speaker
	responder   Responder

	logger *zap.Logger
}

// NewHub creates a new WebSocket hub
func NewHub(transcriber Transcriber, speaker Speaker, responder Responder, logger *zap.Logger) *Hub {
	return &Hub{
		clients:     make(map[string]*Client),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		done:        make(chan struct{}),
		transcriber: transcriber,
		speaker:     speaker,
		responder:   responder,
		logger:      logger,
	}
}

// Run starts the hub's main loop. When ctx is done every client is
// disconnected and Run returns.
func (h *Hub) Run(ctx context.Context) {
	defer h.doneOnce.Do(func() { close(h.done) })

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.id] = client
			h.mu.Unlock()
			h.logger.Info("Client registered",
				zap.String("clientID", client.id),
				zap.String("sessionID", client.sessionID))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.id]; ok {
				delete(h.clients, client.id)
				client.cancel()
			}
			h.mu.Unlock()
			h.logger.Info("Client unregistered", zap.String("clientID", client.id))

		case <-ctx.Done():
			h.mu.Lock()
			for id, client := range h.clients {
				client.cancel()
				delete(h.clients, id)
			}
			h.mu.Unlock()
			return
		}
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

type WriteData struct {
	// MessageType is the type of the websocket message.
	// Expect websocket.TextMessage or websocket.BinaryMessage
	Type    int
	Payload []byte
}

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	hub *Hub

	id        string
	sessionID string

	// The websocket connection.
	conn *websocket.Conn

	// Buffered channel of outbound messages. It is never closed; writers
	// give up once ctx is done.
	send chan WriteData

	ctx    context.Context
	cancel context.CancelFunc

	logger *zap.Logger

	mutex        sync.Mutex
	sttStreaming repositories.SpeechToTextStreaming
	turnID       string
	chunkCount   int
}

// HandleWebSocket upgrades the request and serves the voice protocol for an
// authenticated session.
func (h *Hub) HandleWebSocket(c echo.Context, sessionID string) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Error("WebSocket upgrade failed", zap.Error(err))
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	client := &Client{
		hub:       h,
		id:        uuid.NewString(),
		sessionID: sessionID,
		conn:      conn,
		send:      make(chan WriteData, sendBufferSize),
		ctx:       ctx,
		cancel:    cancel,
		logger:    h.logger.With(zap.String("sessionID", sessionID)),
	}

	select {
	case h.register <- client:
	case <-h.done:
		cancel()
		h.logger.Warn("Rejecting connection, hub is stopped")
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(writeWait))
		conn.Close()
		return nil
	}

	// Allow collection of memory referenced by the caller by doing all work in
	// new goroutines.
	go client.writePump()
	go client.readPump()

	return nil
}

// readPump pumps messages from the websocket connection to the hub.
func (c *Client) readPump() {
	defer func() {
		c.discardStream()
		select {
		case c.hub.unregister <- c:
		case <-c.ctx.Done():
		}
		c.cancel()
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", zap.Error(err))
			}
			break
		}

		switch messageType {
		case websocket.TextMessage:
			c.processMessage(message)
		case websocket.BinaryMessage:
			c.processBinaryAudioChunk(message)
		default:
			c.logger.Warn("Received unknown message type", zap.Int("type", messageType))
		}
	}
}

// writePump pumps messages from the hub to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(message.Type, message.Payload); err != nil {
				c.logger.Error("Failed to write message", zap.Error(err))
				c.cancel()
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.cancel()
				return
			}

		case <-c.ctx.Done():
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

// enqueue hands data to the write pump. It reports false once the client is gone.
func (c *Client) enqueue(data WriteData) bool {
	select {
	case c.send <- data:
		return true
	case <-c.ctx.Done():
		return false
	}
}

func (c *Client) sendJSON(msg *ServerMessage) bool {
	payload, err := json.Marshal(msg)
	if err != nil {
		c.logger.Error("Failed to marshal message", zap.Error(err))
		return false
	}
	return c.enqueue(WriteData{Type: websocket.TextMessage, Payload: payload})
}

func (c *Client) sendError(message string) {
	c.sendJSON(CreateErrorMessage(c.sessionID, message))
}

// processMessage processes incoming control messages from the browser
func (c *Client) processMessage(message []byte) {
	msg, err := ParseClientMessage(message)
	if err != nil {
		c.logger.Warn("Invalid client message", zap.Error(err))
		c.sendError(err.Error())
		return
	}

	switch msg.Type {
	case MessageTypeListeningStart:
		c.handleListeningStart(msg)
	case MessageTypeListeningEnd:
		c.handleListeningEnd()
	}
}

// processBinaryAudioChunk forwards audio to the active recognition stream
func (c *Client) processBinaryAudioChunk(data []byte) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.sttStreaming == nil {
		c.logger.Warn("Received audio chunk while not listening", zap.Int("size", len(data)))
		return
	}

	c.chunkCount++
	if err := c.sttStreaming.Stream(data); err != nil {
		c.logger.Error("Failed to stream audio data",
			zap.String("turnID", c.turnID),
			zap.Error(err))
		c.sttStreaming = nil
		go c.sendError("failed to stream audio")
		return
	}

	c.logger.Debug("Streamed audio chunk",
		zap.String("turnID", c.turnID),
		zap.Int("size", len(data)),
		zap.Int("totalChunks", c.chunkCount))
}

// handleListeningStart opens a recognition stream for a new utterance.
// An utterance still in progress is discarded.
func (c *Client) handleListeningStart(msg *ClientMessage) {
	c.discardStream()

	config := msg.AudioConfig()
	stream, err := c.hub.transcriber.StartTranscription(c.ctx, config)
	if err != nil {
		c.logger.Error("Failed to initialize streaming transcription", zap.Error(err))
		c.sendError("failed to initialize transcription")
		return
	}

	turnID := uuid.NewString()

	c.mutex.Lock()
	c.sttStreaming = stream
	c.turnID = turnID
	c.chunkCount = 0
	c.mutex.Unlock()

	c.logger.Info("Listening started", zap.String("turnID", turnID))
	c.sendJSON(newServerMessage(MessageTypeListeningStart, c.sessionID, turnID))
}

// handleListeningEnd closes the recognition stream and answers in the background
func (c *Client) handleListeningEnd() {
	c.mutex.Lock()
	stream := c.sttStreaming
	turnID := c.turnID
	chunks := c.chunkCount
	c.sttStreaming = nil
	c.mutex.Unlock()

	if stream == nil {
		c.sendError("not listening")
		return
	}

	c.logger.Info("Listening ended", zap.String("turnID", turnID), zap.Int("chunks", chunks))
	go c.completeTurn(stream, turnID)
}

// completeTurn sends the transcript, then the reply text and its audio
func (c *Client) completeTurn(stream repositories.SpeechToTextStreaming, turnID string) {
	transcript, err := stream.End()
	if err != nil {
		c.logger.Error("Failed to end transcription stream", zap.String("turnID", turnID), zap.Error(err))
		c.sendError("failed to end transcription")
		return
	}

	transcriptMsg := newServerMessage(MessageTypeTranscript, c.sessionID, turnID).withText(transcript)
	if transcript == "" {
		transcriptMsg.Message = "No speech detected"
		c.sendJSON(transcriptMsg)
		return
	}
	if !c.sendJSON(transcriptMsg) {
		return
	}

	ctx, cancel := context.WithTimeout(c.ctx, turnTimeout)
	defer cancel()

	reply, err := c.hub.responder.ReplyVoice(ctx, c.sessionID, transcript)
	if err != nil {
		c.logger.Error("Failed to generate reply", zap.String("turnID", turnID), zap.Error(err))
		c.sendError("failed to generate reply")
		return
	}

	if !c.sendJSON(newServerMessage(MessageTypeSpeakingStart, c.sessionID, turnID).withText(reply)) {
		return
	}
	defer c.sendJSON(newServerMessage(MessageTypeSpeakingEnd, c.sessionID, turnID))

	audio, err := c.hub.speaker.StreamSpeech(ctx, reply, string(usecase.DetectLanguage(reply)))
	if err != nil {
		c.logger.Error("Failed to convert text to speech", zap.String("turnID", turnID), zap.Error(err))
		c.sendError("failed to synthesize speech")
		return
	}

	for chunk := range audio {
		if !c.enqueue(WriteData{Type: websocket.BinaryMessage, Payload: chunk}) {
			cancel()
			for range audio {
			}
			return
		}
	}
}

// discardStream abandons an utterance that was never finished
func (c *Client) discardStream() {
	c.mutex.Lock()
	stream := c.sttStreaming
	c.sttStreaming = nil
	c.mutex.Unlock()

	if stream != nil {
		go func() {
			if _, err := stream.End(); err != nil {
				c.logger.Debug("Discarded stream ended with error", zap.Error(err))
			}
		}()
	}
}
