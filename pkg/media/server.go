// ABOUTME: WebSocket endpoint that media players report playback to
// ABOUTME: Accepts player sessions, forwards state reports and broadcasts playback commands
package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/motionsync/motionsync-go/internal/discovery"
)

const (
	// DefaultPort is the endpoint's default listen port
	DefaultPort = 8930

	// DefaultPath is the websocket path players connect to
	DefaultPath = "/motionsync"

	helloTimeout  = 5 * time.Second
	writeDeadline = 10 * time.Second
	pingInterval  = 30 * time.Second
)

// ServerConfig configures the endpoint
type ServerConfig struct {
	Port       int
	Name       string
	Path       string
	EnableMDNS bool
}

// PlayerInfo describes a connected player
type PlayerInfo struct {
	ID       string
	Name     string
	State    State
	LastSeen time.Time
}

type player struct {
	ID   string
	Name string
	conn *websocket.Conn

	sendChan chan any

	mu       sync.RWMutex
	state    State
	lastSeen time.Time
}

// Server is a media Source fed by remote players over websockets
type Server struct {
	config   ServerConfig
	serverID string
	logger   *slog.Logger

	upgrader websocket.Upgrader
	mux      *http.ServeMux

	playersMu sync.RWMutex
	players   map[string]*player

	reportMu sync.RWMutex
	report   ReportFunc

	addrMu sync.Mutex
	addr   net.Addr

	wg sync.WaitGroup
}

// NewServer creates an endpoint; call Run to listen
func NewServer(config ServerConfig, logger *slog.Logger) *Server {
	if config.Port == 0 {
		config.Port = DefaultPort
	}
	if config.Name == "" {
		config.Name = "motionsync"
	}
	if config.Path == "" {
		config.Path = DefaultPath
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		config:   config,
		serverID: uuid.New().String(),
		logger:   logger.With("component", "media-server"),
		mux:      http.NewServeMux(),
		players:  make(map[string]*player),
		upgrader: websocket.Upgrader{
			// players run on the local network or in a browser extension
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	s.mux.HandleFunc(config.Path, s.handleWebSocket)
	return s
}

// Name identifies the source
func (s *Server) Name() string {
	return fmt.Sprintf("websocket :%d%s", s.config.Port, s.config.Path)
}

// Handler exposes the endpoint's routes, for embedding or tests
func (s *Server) Handler() http.Handler {
	return s.mux
}

// SetReportFunc sets where state reports go; Run sets it too
func (s *Server) SetReportFunc(report ReportFunc) {
	s.reportMu.Lock()
	s.report = report
	s.reportMu.Unlock()
}

// Addr returns the listen address once Run is serving
func (s *Server) Addr() net.Addr {
	s.addrMu.Lock()
	defer s.addrMu.Unlock()
	return s.addr
}

// Run listens until ctx is done
func (s *Server) Run(ctx context.Context, report ReportFunc) error {
	s.SetReportFunc(report)

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.config.Port))
	if err != nil {
		return fmt.Errorf("media endpoint listen failed: %w", err)
	}
	s.addrMu.Lock()
	s.addr = ln.Addr()
	s.addrMu.Unlock()

	s.logger.Info("media endpoint listening",
		"addr", ln.Addr().String(),
		"path", s.config.Path,
		"server_id", s.serverID)

	var mdns *discovery.Manager
	if s.config.EnableMDNS {
		mdns = discovery.NewManager(discovery.Config{
			ServiceName: s.config.Name,
			Port:        ln.Addr().(*net.TCPAddr).Port,
			Path:        s.config.Path,
			Logger:      s.logger,
		})
		if err := mdns.Advertise(); err != nil {
			s.logger.Warn("mDNS advertisement failed", "error", err)
		}
	}

	httpServer := &http.Server{Handler: s.mux}
	errChan := make(chan error, 1)
	go func() {
		if err := httpServer.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errChan:
		s.logger.Error("media endpoint failed", "error", serveErr)
	}

	if mdns != nil {
		mdns.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("media endpoint shutdown error", "error", err)
	}

	// hijacked websocket connections are not closed by Shutdown
	s.playersMu.RLock()
	for _, p := range s.players {
		p.conn.Close()
	}
	s.playersMu.RUnlock()

	s.wg.Wait()
	s.logger.Info("media endpoint stopped")
	return serveErr
}

// Players lists connected players ordered by name
func (s *Server) Players() []PlayerInfo {
	s.playersMu.RLock()
	defer s.playersMu.RUnlock()

	infos := make([]PlayerInfo, 0, len(s.players))
	for _, p := range s.players {
		p.mu.RLock()
		infos = append(infos, PlayerInfo{ID: p.ID, Name: p.Name, State: p.state, LastSeen: p.lastSeen})
		p.mu.RUnlock()
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// SendCommand asks every connected player to play, pause or seek.
// Players with a full send queue miss the command.
func (s *Server) SendCommand(cmd Command) int {
	s.playersMu.RLock()
	defer s.playersMu.RUnlock()

	sent := 0
	for _, p := range s.players {
		select {
		case p.sendChan <- outgoing{Type: TypeServerCommand, Payload: cmd}:
			sent++
		default:
			s.logger.Warn("player send queue full, dropping command", "player", p.Name)
		}
	}
	return sent
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade error", "error", err)
		return
	}

	s.logger.Debug("new player connection", "remote", r.RemoteAddr)
	s.wg.Add(1)
	defer s.wg.Done()
	s.handleConnection(conn)
}

func (s *Server) handleConnection(conn *websocket.Conn) {
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(helloTimeout))
	_, data, err := conn.ReadMessage()
	if err != nil {
		s.logger.Debug("error reading hello", "error", err)
		return
	}
	conn.SetReadDeadline(time.Time{})

	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil || msg.Type != TypePlayerHello {
		s.logger.Warn("expected player/hello", "type", msg.Type, "error", err)
		return
	}

	var hello PlayerHello
	if err := json.Unmarshal(msg.Payload, &hello); err != nil {
		s.logger.Warn("invalid player/hello", "error", err)
		return
	}
	if hello.PlayerID == "" {
		hello.PlayerID = uuid.New().String()
	}
	if hello.Name == "" {
		short := hello.PlayerID
		if len(short) > 8 {
			short = short[:8]
		}
		hello.Name = "player-" + short
	}

	p := &player{
		ID:       hello.PlayerID,
		Name:     hello.Name,
		conn:     conn,
		sendChan: make(chan any, 16),
		lastSeen: time.Now(),
	}

	s.playersMu.Lock()
	if _, exists := s.players[p.ID]; exists {
		s.playersMu.Unlock()
		s.logger.Warn("player already connected, rejecting duplicate", "player_id", p.ID)
		return
	}
	s.players[p.ID] = p
	s.playersMu.Unlock()

	s.logger.Info("player connected", "player", p.Name, "player_id", p.ID)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		s.playerWriter(p)
	}()

	defer func() {
		s.removePlayer(p)
		<-writerDone
		s.logger.Info("player disconnected", "player", p.Name)
	}()

	p.sendChan <- outgoing{Type: TypeServerHello, Payload: ServerHello{
		ServerID: s.serverID,
		Name:     s.config.Name,
		Version:  ProtocolVersion,
	}}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debug("websocket read error", "player", p.Name, "error", err)
			}
			return
		}
		if !s.handlePlayerMessage(p, data) {
			return
		}
	}
}

// handlePlayerMessage returns false when the player said goodbye
func (s *Server) handlePlayerMessage(p *player, data []byte) bool {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		s.logger.Debug("error unmarshaling message", "player", p.Name, "error", err)
		return true
	}

	switch msg.Type {
	case TypePlayerState:
		var ps PlayerState
		if err := json.Unmarshal(msg.Payload, &ps); err != nil {
			s.logger.Debug("invalid player/state", "player", p.Name, "error", err)
			return true
		}
		s.handleState(p, State{
			Position: ps.Position,
			Duration: ps.Duration,
			Speed:    ps.Speed,
			Playing:  ps.Playing,
			Path:     ps.Path,
		})
	case TypePlayerGoodbye:
		var bye PlayerGoodbye
		json.Unmarshal(msg.Payload, &bye)
		s.logger.Info("player goodbye", "player", p.Name, "reason", bye.Reason)
		return false
	default:
		s.logger.Debug("unknown message type", "type", msg.Type)
	}
	return true
}

func (s *Server) handleState(p *player, state State) {
	if state.Speed <= 0 {
		state.Speed = 1
	}

	p.mu.Lock()
	p.state = state
	p.lastSeen = time.Now()
	p.mu.Unlock()

	s.reportMu.RLock()
	report := s.report
	s.reportMu.RUnlock()
	if report != nil {
		report(state)
	}
}

func (s *Server) playerWriter(p *player) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-p.sendChan:
			if !ok {
				return
			}
			data, err := json.Marshal(msg)
			if err != nil {
				continue
			}
			p.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := p.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			if err := p.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeDeadline)); err != nil {
				return
			}
		}
	}
}

// removePlayer drops a player and pauses playback at its last position
func (s *Server) removePlayer(p *player) {
	s.playersMu.Lock()
	delete(s.players, p.ID)
	close(p.sendChan)
	s.playersMu.Unlock()

	p.mu.RLock()
	last := p.state
	p.mu.RUnlock()

	if last.Playing {
		last.Playing = false
		s.handleState(p, last)
	}
}
