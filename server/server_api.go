package server

import (
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"cpsys/internal"
	"cpsys/internal/config"
)

const (
	apiEndpoint = "/api"
)

// Api accepts operator commands and forwards them to the connected charge
// points through the central system.
type Api struct {
	conf           *config.Config
	httpServer     *http.Server
	commandHandler func(w http.ResponseWriter, command *CentralSystemCommand) error
	logger         internal.LogHandler
}

func NewServerApi(conf *config.Config, logger internal.LogHandler) *Api {
	server := Api{
		conf:   conf,
		logger: logger,
	}
	server.httpServer = &http.Server{
		Addr:    fmt.Sprintf("%s:%s", conf.Api.BindIP, conf.Api.Port),
		Handler: http.HandlerFunc(server.handleRoot),
	}
	return &server
}

func (s *Api) Start() error {
	if s.conf.Api.TLS {
		cert, err := tls.LoadX509KeyPair(s.conf.Api.CertFile, s.conf.Api.KeyFile)
		if err != nil {
			return fmt.Errorf("api: failed to load certificate: %v", err)
		}
		s.httpServer.TLSConfig = &tls.Config{
			MinVersion:   tls.VersionTLS12,
			Certificates: []tls.Certificate{cert},
		}
		return s.httpServer.ListenAndServeTLS("", "")
	}
	return s.httpServer.ListenAndServe()
}

func (s *Api) SetCommandHandler(handler func(w http.ResponseWriter, command *CentralSystemCommand) error) {
	s.commandHandler = handler
}

// handle requests to the root path
func (s *Api) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.logger.Warn(fmt.Sprintf("api: invalid method %s from %s", r.Method, r.RemoteAddr))
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if r.URL.Path != apiEndpoint {
		s.logger.Warn(fmt.Sprintf("api: invalid path %s from %s", r.URL.Path, r.RemoteAddr))
		w.WriteHeader(http.StatusNotFound)
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.logger.Warn(fmt.Sprintf("api: error reading body from %s: %s", r.RemoteAddr, err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	var command CentralSystemCommand
	if err = json.Unmarshal(body, &command); err != nil {
		s.logger.Warn(fmt.Sprintf("api: error parsing command from %s: %s", r.RemoteAddr, err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if err = s.commandHandler(w, &command); err != nil {
		s.logger.Warn(fmt.Sprintf("api: error sending command %s to %s: %s", command.FeatureName, command.ChargePointId, err))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
}
