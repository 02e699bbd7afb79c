package server

import (
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"

	"cpsys/internal"
	"cpsys/internal/config"
	"cpsys/utility"
)

const (
	wsEndpoint = "/ws/:id"
)

type Server struct {
	conf              *config.Config
	httpServer        *http.Server
	upgrader          websocket.Upgrader
	messageHandler    func(ws *WebSocket, data []byte) error
	disconnectHandler func(ws *WebSocket)
	logger            internal.LogHandler

	mu      sync.Mutex
	sockets map[string]*WebSocket
}

// WebSocket is one charge point connection. Writes are serialized; concurrent
// dispatch callbacks and operator commands share the socket.
type WebSocket struct {
	conn        *websocket.Conn
	id          string
	subProtocol string

	writeMu sync.Mutex
	closed  bool
}

func (ws *WebSocket) ID() string {
	return ws.id
}

func (ws *WebSocket) SubProtocol() string {
	return ws.subProtocol
}

func (ws *WebSocket) IsClosed() bool {
	ws.writeMu.Lock()
	defer ws.writeMu.Unlock()
	return ws.closed
}

func (ws *WebSocket) write(data []byte) error {
	ws.writeMu.Lock()
	defer ws.writeMu.Unlock()
	if ws.closed {
		return utility.Errf("socket %s is closed", ws.id)
	}
	return ws.conn.WriteMessage(websocket.TextMessage, data)
}

func NewServer(conf *config.Config) *Server {
	server := Server{
		conf:     conf,
		upgrader: websocket.Upgrader{Subprotocols: []string{}},
		sockets:  make(map[string]*WebSocket),
	}
	// register itself as a router for httpServer handler
	router := httprouter.New()
	server.Register(router)
	server.httpServer = &http.Server{
		Handler: router,
	}
	return &server
}

func (s *Server) AddSupportedSubProtocol(proto string) {
	for _, sub := range s.upgrader.Subprotocols {
		if sub == proto {
			return
		}
	}
	s.upgrader.Subprotocols = append(s.upgrader.Subprotocols, proto)
}

func (s *Server) SetMessageHandler(handler func(ws *WebSocket, data []byte) error) {
	s.messageHandler = handler
}

func (s *Server) SetDisconnectHandler(handler func(ws *WebSocket)) {
	s.disconnectHandler = handler
}

func (s *Server) SetLogger(logger internal.LogHandler) {
	s.logger = logger
}

func (s *Server) Register(router *httprouter.Router) {
	router.GET(wsEndpoint, s.handleWsRequest)
}

func (s *Server) handleWsRequest(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	id := params.ByName("id")
	s.logger.Debug(fmt.Sprintf("connection initiated from remote %s", r.RemoteAddr))

	s.upgrader.CheckOrigin = func(r *http.Request) bool {
		return true
	}

	clientSubProto := websocket.Subprotocols(r)
	requestedProto := ""
	for _, proto := range clientSubProto {
		if utility.Contains(s.upgrader.Subprotocols, proto) {
			requestedProto = proto
			break
		}
	}
	responseHeader := http.Header{}
	if requestedProto != "" {
		responseHeader.Add("Sec-WebSocket-Protocol", requestedProto)
	}

	conn, err := s.upgrader.Upgrade(w, r, responseHeader)
	if err != nil {
		s.logger.Error("upgrade failed: ", err)
		return
	}

	s.logger.Debug(fmt.Sprintf("upgraded socket for %s with subprotocol %q", id, requestedProto))
	ws := &WebSocket{
		conn:        conn,
		id:          id,
		subProtocol: requestedProto,
	}
	s.addSocket(ws)

	go s.messageReader(ws)
}

func (s *Server) addSocket(ws *WebSocket) {
	s.mu.Lock()
	if previous, ok := s.sockets[ws.id]; ok {
		// a reconnect replaces a stale socket of the same identity
		previous.writeMu.Lock()
		previous.closed = true
		previous.writeMu.Unlock()
		_ = previous.conn.Close()
	}
	s.sockets[ws.id] = ws
	count := len(s.sockets)
	s.mu.Unlock()
	observeConnections(count)
}

// removeSocket drops the socket from the registry and reports whether it was
// still the registered one. A stale socket replaced by a reconnect returns
// false: its teardown must not touch the live connection.
func (s *Server) removeSocket(ws *WebSocket) bool {
	s.mu.Lock()
	registered := false
	if current, ok := s.sockets[ws.id]; ok && current == ws {
		delete(s.sockets, ws.id)
		registered = true
	}
	count := len(s.sockets)
	s.mu.Unlock()
	observeConnections(count)
	return registered
}

// Socket returns the live connection of a charge point identity.
func (s *Server) Socket(id string) (*WebSocket, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ws, ok := s.sockets[id]
	return ws, ok
}

func (s *Server) messageReader(ws *WebSocket) {
	conn := ws.conn
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, 3001) {
				s.logger.Debug(fmt.Sprintf("id %s leaving session", ws.id))
			} else {
				s.logger.Debug(fmt.Sprintf("id %s is closing session %s", ws.id, err))
			}
			ws.writeMu.Lock()
			ws.closed = true
			ws.writeMu.Unlock()
			err = conn.Close()
			if err != nil {
				s.logger.Warn(fmt.Sprintf("error while closing socket %s %s", ws.id, err))
			}
			if s.removeSocket(ws) && s.disconnectHandler != nil {
				s.disconnectHandler(ws)
			}
			return
		}
		s.logger.RawDataEvent("IN", string(message))
		if s.messageHandler != nil {
			err = s.messageHandler(ws, message)
			if err != nil {
				s.logger.Error(fmt.Sprintf("handling message from %s", ws.id), err)
				continue
			}
		}
	}
}

func (s *Server) Start() error {
	if s.conf == nil {
		return utility.Err("configuration not loaded")
	}
	serverAddress := fmt.Sprintf("%s:%s", s.conf.Listen.BindIP, s.conf.Listen.Port)
	s.logger.Debug(fmt.Sprintf("starting server on %s", serverAddress))
	listener, err := net.Listen("tcp", serverAddress)
	if err != nil {
		return err
	}
	if s.conf.Listen.TLS {
		s.logger.Debug("starting https TLS server")
		err = s.httpServer.ServeTLS(listener, s.conf.Listen.CertFile, s.conf.Listen.KeyFile)
	} else {
		s.logger.Debug("starting http server")
		err = s.httpServer.Serve(listener)
	}
	return err
}

// Send writes one encoded frame to a socket.
func (s *Server) Send(ws *WebSocket, data []byte) error {
	s.logger.RawDataEvent("OUT", string(data))
	if err := ws.write(data); err != nil {
		s.logger.Error(fmt.Sprintf("sending to %s", ws.id), err)
		return err
	}
	return nil
}

// SendTo writes one encoded frame to the connection of a charge point identity.
func (s *Server) SendTo(id string, data []byte) error {
	ws, ok := s.Socket(id)
	if !ok {
		return utility.Errf("charge point %s is not connected", id)
	}
	return s.Send(ws, data)
}
