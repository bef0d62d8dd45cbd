package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/m-mizutani/goerr/v2"
	"github.com/xhad/newsrag/internal/models"
	"github.com/xhad/newsrag/pkg/rag"
)

const (
	TypeRefresh  = "refresh"
	TypeAsk      = "ask"
	TypeStatus   = "status"
	TypeError    = "error"
	TypeResponse = "response"
)

type Message struct {
	Type    string `json:"type"`
	Content string `json:"content"`
	Data    any    `json:"data,omitempty"`
}

// Assistant is what the server needs from the news service.
type Assistant interface {
	Refresh(ctx context.Context) (*rag.RefreshResult, error)
	Answer(ctx context.Context, question string) (*models.Answer, error)
	Items() []models.NewsItem
}

type Config struct {
	Addr            string
	ShutdownTimeout time.Duration
	Logger          *slog.Logger
}

type WSServer struct {
	config    Config
	assistant Assistant
	upgrader  websocket.Upgrader
	log       *slog.Logger
}

func NewWSServer(config Config, assistant Assistant) (*WSServer, error) {
	if assistant == nil {
		return nil, goerr.New("assistant is required")
	}
	if config.Addr == "" {
		config.Addr = ":8080"
	}
	if config.ShutdownTimeout == 0 {
		config.ShutdownTimeout = 10 * time.Second
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	return &WSServer{
		config:    config,
		assistant: assistant,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // no authentication, local use only
			},
		},
		log: config.Logger,
	}, nil
}

func (s *WSServer) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Get("/news", s.handleNews)
	r.Get("/ws", s.handleWebSocket)
	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *WSServer) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.config.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("websocket server starting", slog.String("addr", s.config.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return goerr.Wrap(err, "server stopped", goerr.V("addr", s.config.Addr))
		}
		return nil
	case <-ctx.Done():
	}

	s.log.Info("shutting down websocket server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return goerr.Wrap(err, "server shutdown")
	}
	return nil
}

func (s *WSServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (s *WSServer) handleNews(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.assistant.Items())
}

// connection serializes writes; gorilla connections allow one concurrent writer.
type connection struct {
	conn *websocket.Conn
	mu   sync.Mutex
	log  *slog.Logger
}

func (c *connection) send(msg Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.WriteJSON(msg); err != nil {
		c.log.Warn("failed to send message", slog.String("type", msg.Type), slog.Any("err", err))
	}
}

func (s *WSServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", slog.Any("err", err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	c := &connection{
		conn: conn,
		log:  s.log.With(slog.String("request_id", middleware.GetReqID(r.Context()))),
	}

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.log.Debug("websocket read ended", slog.Any("err", err))
			}
			cancel()
			return
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			s.handleMessage(ctx, c, msg)
		}()
	}
}

func (s *WSServer) handleMessage(ctx context.Context, c *connection, msg Message) {
	switch msg.Type {
	case TypeRefresh:
		c.send(Message{Type: TypeStatus, Content: "Refreshing news..."})
		result, err := s.assistant.Refresh(ctx)
		if err != nil {
			c.send(Message{Type: TypeError, Content: errorText(err)})
			c.log.Warn("refresh failed", slog.Any("err", err))
			return
		}
		c.send(Message{Type: TypeStatus, Content: "News index refreshed", Data: map[string]int{
			"items":     result.Items,
			"dimension": result.Dimension,
		}})

	case TypeAsk:
		answer, err := s.assistant.Answer(ctx, msg.Content)
		if err != nil {
			c.send(Message{Type: TypeError, Content: errorText(err)})
			if !errors.Is(err, rag.ErrNoIndex) && !errors.Is(err, rag.ErrEmptyQuestion) {
				c.log.Warn("answer failed", slog.Any("err", err))
			}
			return
		}
		c.send(Message{Type: TypeResponse, Content: answer.Text, Data: answer.Sources})

	default:
		c.send(Message{Type: TypeError, Content: "unknown message type: " + msg.Type})
	}
}

// errorText keeps internal error details out of client messages.
func errorText(err error) string {
	switch {
	case errors.Is(err, rag.ErrNoNews):
		return "No news found"
	case errors.Is(err, rag.ErrNoIndex):
		return "No news index loaded, refresh first"
	case errors.Is(err, rag.ErrEmptyQuestion):
		return "Question is empty"
	default:
		return "Something went wrong, please try again"
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
