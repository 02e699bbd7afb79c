package server

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"cpsys/decoder"
	"cpsys/dispatch"
	"cpsys/handlers"
	"cpsys/internal"
	"cpsys/internal/config"
	"cpsys/ocpp"
	"cpsys/ocpp/core"
	"cpsys/ocpp/firmware"
	"cpsys/ocpp/localauth"
	"cpsys/ocpp/remotetrigger"
	"cpsys/ocpp/smartcharging"
	"cpsys/session"
	"cpsys/status"
	"cpsys/telegram"
	"cpsys/types"
	"cpsys/utility"
)

const commandTimeout = 10 * time.Second

// CentralSystem ties the transport to the decoder, the dispatcher and the
// handlers. One instance serves all connected charge points.
type CentralSystem struct {
	conf       *config.Config
	server     *Server
	api        *Api
	logger     internal.LogHandler
	database   internal.Database
	registry   *dispatch.Registry
	dispatcher *dispatch.Dispatcher
	decoders   map[ocpp.Version]decoder.Decoder
	handler    *handlers.Handler
	sessions   *session.Manager
	tracker    *status.Tracker
	location   *time.Location

	mu              sync.Mutex
	pendingRequests map[string]*pendingRequest
}

// pendingRequest tracks one outstanding charge-point-bound call, keyed by its
// correlation id.
type pendingRequest struct {
	action   ocpp.Action
	raw      json.RawMessage
	response chan pendingResult
}

type pendingResult struct {
	payload ocpp.Payload
	raw     json.RawMessage
	callErr *ocpp.Error
}

type CentralSystemCommand struct {
	ChargePointId string `json:"charge_point_id"`
	ConnectorId   int    `json:"connector_id"`
	FeatureName   string `json:"feature_name"`
	Payload       string `json:"payload"`
}

func NewCentralSystem(conf *config.Config) (*CentralSystem, error) {
	cs := &CentralSystem{
		conf:            conf,
		pendingRequests: make(map[string]*pendingRequest),
	}

	log.Println("set time zone to " + conf.TimeZone)
	location, err := time.LoadLocation(conf.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("time zone initialization failed: %s", err)
	}
	cs.location = location

	var database internal.Database
	if conf.Mongo.Enabled {
		database, err = internal.NewMongoClient(conf)
		if err != nil {
			return nil, fmt.Errorf("mongodb setup failed: %s", err)
		}
		log.Println("mongodb is configured and enabled")
	} else {
		log.Println("database is disabled")
	}
	cs.database = database

	logService := internal.NewLogger(location)
	logService.SetDebugMode(conf.IsDebug)
	logService.SetDatabase(database)
	cs.logger = logService

	cs.decoders = map[ocpp.Version]decoder.Decoder{}
	for _, version := range []ocpp.Version{ocpp.V15, ocpp.V16} {
		dec, err := decoder.ForVersion(version)
		if err != nil {
			return nil, fmt.Errorf("decoder setup for version %s failed: %s", version, err)
		}
		cs.decoders[version] = dec
	}

	authorizer := session.NewTagAuthorizer(database, logService, conf.AcceptUnknownTag)
	cs.sessions = session.NewManager(database, logService, authorizer, conf)
	cs.tracker = status.NewTracker(database, logService)
	cs.handler = handlers.NewHandler(conf, database, logService, cs.sessions, cs.tracker, authorizer)

	if conf.Telegram.Enabled {
		bot, err := telegram.NewBot(conf.Telegram.ApiKey)
		if err != nil {
			return nil, fmt.Errorf("telegram bot setup failed: %s", err)
		}
		bot.SetDatabase(database)
		bot.Start()
		cs.handler.SetEventHandler(bot)
		log.Println("telegram bot is configured and enabled")
	}

	cs.registry = dispatch.NewRegistry()
	cs.handler.Register(cs.registry)
	cs.dispatcher = dispatch.NewDispatcher(cs.registry, logService)

	wsServer := NewServer(conf)
	wsServer.SetLogger(logService)
	wsServer.AddSupportedSubProtocol(types.SubProtocol16)
	wsServer.AddSupportedSubProtocol(types.SubProtocol15)
	wsServer.SetMessageHandler(cs.handleIncomingMessage)
	wsServer.SetDisconnectHandler(cs.handleDisconnect)
	cs.server = wsServer

	apiServer := NewServerApi(conf, logService)
	apiServer.SetCommandHandler(cs.handleApiRequest)
	cs.api = apiServer

	return cs, nil
}

func (cs *CentralSystem) Start() {
	cs.handler.OnStart()
	cs.sessions.OnStart()
	cs.tracker.OnStart()

	go func() {
		if err := cs.server.Start(); err != nil {
			cs.logger.Error("websocket server failed", err)
		}
	}()

	go func() {
		if err := cs.api.Start(); err != nil {
			cs.logger.Error("api server failed", err)
		}
	}()

	select {}
}

// socketVersion maps a negotiated subprotocol to the protocol version; a client
// that negotiated nothing is treated as the current version.
func (cs *CentralSystem) socketVersion(ws *WebSocket) ocpp.Version {
	if version, ok := ocpp.VersionFromSubProtocol(ws.SubProtocol()); ok {
		return version
	}
	return ocpp.V16
}

func (cs *CentralSystem) handleIncomingMessage(ws *WebSocket, data []byte) error {
	frame, err := ParseFrame(data)
	if err != nil {
		return fmt.Errorf("from %s: %w", ws.ID(), err)
	}
	switch frame.Type {
	case CallTypeRequest:
		return cs.handleCall(ws, frame)
	case CallTypeResult:
		cs.completePending(ws, frame)
		return nil
	case CallTypeError:
		cs.failPending(ws, frame)
		return nil
	}
	return nil
}

func (cs *CentralSystem) handleCall(ws *WebSocket, frame *Frame) error {
	version := cs.socketVersion(ws)
	action, known := ocpp.LookupAction(version, ocpp.CentralSystemBound, frame.Action)
	if !known {
		observeCallError(string(ocpp.NotImplemented), ws.ID())
		return cs.sendCallError(ws, frame.UniqueId, ocpp.NewError(ocpp.NotImplemented, fmt.Sprintf("action %s is not supported", frame.Action)))
	}
	payload, decodeErr := cs.decoders[version].Decode(action, false, frame.Payload)
	if decodeErr != nil {
		observeCallError(string(decodeErr.Code), ws.ID())
		return cs.sendCallError(ws, frame.UniqueId, decodeErr)
	}
	request, ok := payload.(ocpp.Request)
	if !ok {
		return fmt.Errorf("decoded payload for %s is not a request", frame.Action)
	}
	observeCall(frame.Action, ws.ID())
	env := &ocpp.Envelope{
		Client:        ocpp.NewIdentity(ws.ID()),
		Action:        action,
		Payload:       request,
		CorrelationId: frame.UniqueId,
	}
	return cs.dispatcher.Dispatch(env, cs.resultSender(ws))
}

// resultSender encodes dispatch outcomes onto the socket. It runs on the worker
// of the connection, so responses leave in receipt order.
func (cs *CentralSystem) resultSender(ws *WebSocket) ocpp.ResultCallback {
	return func(env *ocpp.Envelope, result ocpp.Response, callErr *ocpp.Error) {
		var data []byte
		var err error
		if callErr != nil {
			observeCallError(string(callErr.Code), ws.ID())
			data, err = MarshalCallError(env.CorrelationId, callErr)
		} else {
			data, err = MarshalCallResult(env.CorrelationId, result)
		}
		if err != nil {
			cs.logger.Error(fmt.Sprintf("encoding response for %s", env.Action.Name), err)
			return
		}
		if ws.IsClosed() {
			cs.logger.FeatureEvent(env.Action.Name, env.Client.Identifier, "websocket closed, response not sent")
			return
		}
		_ = cs.server.Send(ws, data)
	}
}

func (cs *CentralSystem) sendCallError(ws *WebSocket, uniqueId string, callErr *ocpp.Error) error {
	data, err := MarshalCallError(uniqueId, callErr)
	if err != nil {
		return err
	}
	return cs.server.Send(ws, data)
}

func (cs *CentralSystem) takePending(uniqueId string) (*pendingRequest, bool) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	pending, ok := cs.pendingRequests[uniqueId]
	if ok {
		delete(cs.pendingRequests, uniqueId)
	}
	return pending, ok
}

func (cs *CentralSystem) completePending(ws *WebSocket, frame *Frame) {
	pending, ok := cs.takePending(frame.UniqueId)
	if !ok {
		cs.logger.Warn(fmt.Sprintf("unexpected call result %s from %s", frame.UniqueId, ws.ID()))
		return
	}
	payload, decodeErr := cs.decoders[cs.socketVersion(ws)].Decode(pending.action, true, frame.Payload)
	pending.response <- pendingResult{payload: payload, raw: frame.Payload, callErr: decodeErr}
}

func (cs *CentralSystem) failPending(ws *WebSocket, frame *Frame) {
	pending, ok := cs.takePending(frame.UniqueId)
	if !ok {
		cs.logger.Warn(fmt.Sprintf("unexpected call error %s from %s: %s %s", frame.UniqueId, ws.ID(), frame.ErrorCode, frame.ErrorDescription))
		return
	}
	pending.response <- pendingResult{
		callErr: ocpp.NewError(ocpp.ErrorCode(frame.ErrorCode), frame.ErrorDescription),
	}
}

func (cs *CentralSystem) handleDisconnect(ws *WebSocket) {
	cs.dispatcher.Disconnect(ocpp.NewIdentity(ws.ID()))
}

// SendRequest issues one charge-point-bound call and returns the channel the
// correlated result arrives on.
func (cs *CentralSystem) SendRequest(chargePointId string, action ocpp.Action, request ocpp.Request) (chan pendingResult, error) {
	uniqueId := utility.NewUUID()
	data, err := MarshalCall(uniqueId, action.Name, request)
	if err != nil {
		return nil, err
	}
	pending := &pendingRequest{
		action:   action,
		response: make(chan pendingResult, 1),
	}
	cs.mu.Lock()
	cs.pendingRequests[uniqueId] = pending
	cs.mu.Unlock()
	if err = cs.server.SendTo(chargePointId, data); err != nil {
		cs.takePending(uniqueId)
		return nil, err
	}
	return pending.response, nil
}

func (cs *CentralSystem) handleApiRequest(w http.ResponseWriter, command *CentralSystemCommand) error {
	if command.FeatureName == "" {
		return fmt.Errorf("feature name is empty")
	}
	ws, connected := cs.server.Socket(command.ChargePointId)
	if !connected {
		return fmt.Errorf("charge point %s is not connected", command.ChargePointId)
	}
	version := cs.socketVersion(ws)
	action, known := ocpp.LookupAction(version, ocpp.ChargePointBound, command.FeatureName)
	if !known {
		return fmt.Errorf("feature not supported: %s", command.FeatureName)
	}
	request, err := cs.buildCommandRequest(command)
	if err != nil {
		return err
	}

	response, err := cs.SendRequest(command.ChargePointId, action, request)
	if err != nil {
		return err
	}

	select {
	case result := <-response:
		if result.callErr != nil {
			w.Header().Add("Content-Type", "application/json; charset=utf-8")
			w.WriteHeader(http.StatusBadGateway)
			data, _ := json.Marshal(result.callErr)
			_, _ = w.Write(data)
		} else if len(result.raw) == 0 {
			w.WriteHeader(http.StatusNoContent)
		} else {
			w.Header().Add("Content-Type", "application/json; charset=utf-8")
			if _, err := w.Write(result.raw); err != nil {
				cs.logger.Error("cs command send response", err)
			}
		}
	case <-time.After(commandTimeout):
		cs.logger.Warn(fmt.Sprintf("timeout waiting for response from %s", command.ChargePointId))
		w.WriteHeader(http.StatusNoContent)
	}
	return nil
}

// buildCommandRequest turns an operator command into the wire request of its
// action. The payload is a free-form string; its meaning depends on the action.
func (cs *CentralSystem) buildCommandRequest(command *CentralSystemCommand) (ocpp.Request, error) {
	switch command.FeatureName {
	case core.RemoteStartTransactionFeatureName:
		request := core.NewRemoteStartTransactionRequest(command.Payload)
		if command.ConnectorId > 0 {
			connectorId := command.ConnectorId
			request.ConnectorId = &connectorId
		}
		return request, nil
	case core.RemoteStopTransactionFeatureName:
		return core.NewRemoteStopTransactionRequest(utility.ToInt(command.Payload)), nil
	case core.GetConfigurationFeatureName:
		var keys []string
		if command.Payload != "" {
			keys = strings.Split(command.Payload, ",")
		}
		return core.NewGetConfigurationRequest(keys), nil
	case core.ChangeConfigurationFeatureName:
		key, value, found := strings.Cut(command.Payload, "=")
		if !found {
			return nil, fmt.Errorf("payload must be key=value")
		}
		if configurationKey, ok := ocpp.LookupConfigurationKey(key); ok {
			if configurationKey.ReadOnly {
				return nil, fmt.Errorf("configuration key %s is read-only", key)
			}
			if err := configurationKey.ValidateValue(value); err != nil {
				return nil, err
			}
		}
		return core.NewChangeConfigurationRequest(key, value), nil
	case core.ResetFeatureName:
		resetType := core.ResetType(command.Payload)
		if resetType != core.ResetTypeHard && resetType != core.ResetTypeSoft {
			return nil, fmt.Errorf("payload must be Hard or Soft")
		}
		return core.NewResetRequest(resetType), nil
	case core.UnlockConnectorFeatureName:
		if command.ConnectorId <= 0 {
			return nil, fmt.Errorf("connector id is required")
		}
		return core.NewUnlockConnectorRequest(command.ConnectorId), nil
	case remotetrigger.TriggerMessageFeatureName:
		return remotetrigger.NewTriggerMessageRequest(remotetrigger.MessageTrigger(command.Payload), command.ConnectorId), nil
	case localauth.SendLocalListFeatureName:
		return cs.buildLocalListRequest(utility.ToInt(command.Payload))
	case firmware.GetDiagnosticsFeatureName:
		if command.Payload == "" {
			return nil, fmt.Errorf("upload location is required")
		}
		return firmware.NewGetDiagnosticsRequest(command.Payload), nil
	case smartcharging.SetChargingProfileFeatureName:
		var profile types.ChargingProfile
		if err := json.Unmarshal([]byte(command.Payload), &profile); err != nil {
			return nil, fmt.Errorf("invalid charging profile payload: %w", err)
		}
		return smartcharging.NewSetChargingProfileRequest(command.ConnectorId, &profile), nil
	case smartcharging.GetCompositeScheduleFeatureName:
		return smartcharging.NewGetCompositeScheduleRequest(command.ConnectorId, utility.ToInt(command.Payload)), nil
	case smartcharging.ClearChargingProfileFeatureName:
		request := &smartcharging.ClearChargingProfileRequest{}
		if command.ConnectorId > 0 {
			connectorId := command.ConnectorId
			request.ConnectorId = &connectorId
		}
		return request, nil
	default:
		return nil, fmt.Errorf("feature not supported: %s", command.FeatureName)
	}
}

// buildLocalListRequest composes a full local authorization list from the
// enabled user tags.
func (cs *CentralSystem) buildLocalListRequest(version int) (ocpp.Request, error) {
	request := localauth.NewSendLocalListRequest(version, localauth.UpdateTypeFull)
	if cs.database == nil {
		return request, nil
	}
	userTags, err := cs.database.GetUserTags()
	if err != nil {
		return nil, err
	}
	for _, userTag := range userTags {
		if !userTag.IsEnabled {
			continue
		}
		entry := localauth.AuthorizationData{
			IdTag:     userTag.IdTag,
			IdTagInfo: types.NewIdTagInfo(types.AuthorizationStatusAccepted),
		}
		if userTag.ExpiryDate != nil {
			entry.IdTagInfo.ExpiryDate = types.NewDateTime(*userTag.ExpiryDate)
		}
		request.LocalAuthorizationList = append(request.LocalAuthorizationList, entry)
	}
	return request, nil
}
