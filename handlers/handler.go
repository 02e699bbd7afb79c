// Package handlers implements the central-system side of the charge point
// actions. Every handler is registered with the dispatcher for both protocol
// versions; version differences live in the decoder, not here.
package handlers

import (
	"fmt"
	"sync"
	"time"

	"cpsys/internal"
	"cpsys/internal/config"
	"cpsys/models"
	"cpsys/ocpp"
	"cpsys/session"
	"cpsys/status"
)

const defaultHeartbeatInterval = 600

// Handler owns the charge point registry and serves the inbound actions. Charge
// point records are cached by wire identity; numeric ids are minted from a
// counter seeded with the highest persisted id.
type Handler struct {
	conf       *config.Config
	database   internal.Database
	logger     internal.LogHandler
	sessions   *session.Manager
	tracker    *status.Tracker
	authorizer session.Authorizer
	events     internal.EventHandler

	mu           sync.Mutex
	chargePoints map[string]*models.ChargePoint
	lastId       int64
}

func NewHandler(conf *config.Config, database internal.Database, logger internal.LogHandler, sessions *session.Manager, tracker *status.Tracker, authorizer session.Authorizer) *Handler {
	return &Handler{
		conf:         conf,
		database:     database,
		logger:       logger,
		sessions:     sessions,
		tracker:      tracker,
		authorizer:   authorizer,
		chargePoints: make(map[string]*models.ChargePoint),
	}
}

// SetEventHandler attaches an optional event listener for session and status
// notifications.
func (h *Handler) SetEventHandler(events internal.EventHandler) {
	h.events = events
}

// OnStart loads the registered charge points and seeds the id counter.
func (h *Handler) OnStart() {
	if h.database == nil {
		return
	}
	chargePoints, err := h.database.GetChargePoints()
	if err != nil {
		h.logger.Error("loading charge points", err)
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for i := range chargePoints {
		chargePoint := chargePoints[i]
		h.chargePoints[chargePoint.Identity] = &chargePoint
		if chargePoint.Id > h.lastId {
			h.lastId = chargePoint.Id
		}
	}
	h.logger.Debug(fmt.Sprintf("loaded %d charge points", len(chargePoints)))
}

// chargePoint resolves a wire identity to its registered record.
func (h *Handler) chargePoint(client ocpp.ChargePointIdentity) (*models.ChargePoint, bool) {
	h.mu.Lock()
	chargePoint, ok := h.chargePoints[client.Identifier]
	h.mu.Unlock()
	if ok {
		return chargePoint, true
	}
	if h.database == nil {
		return nil, false
	}
	stored, err := h.database.GetChargePointByIdentity(client.Identifier)
	if err != nil {
		h.logger.Error(fmt.Sprintf("reading charge point %s", client.Identifier), err)
		return nil, false
	}
	if stored == nil {
		return nil, false
	}
	h.mu.Lock()
	h.chargePoints[client.Identifier] = stored
	if stored.Id > h.lastId {
		h.lastId = stored.Id
	}
	h.mu.Unlock()
	return stored, true
}

// register creates a charge point record for a new wire identity.
func (h *Handler) register(client ocpp.ChargePointIdentity, info models.ChargePointInfo) *models.ChargePoint {
	h.mu.Lock()
	h.lastId++
	chargePoint := &models.ChargePoint{
		Id:           h.lastId,
		Identity:     client.Identifier,
		UserScope:    client.UserScope,
		IsEnabled:    true,
		Title:        client.Identifier,
		RegisteredAt: time.Now(),
		Info:         info,
	}
	h.chargePoints[client.Identifier] = chargePoint
	h.mu.Unlock()
	if h.database != nil {
		if err := h.database.AddChargePoint(chargePoint); err != nil {
			h.logger.Error(fmt.Sprintf("persisting charge point %s", client.Identifier), err)
		}
	}
	h.logger.FeatureEvent("Register", client.Identifier, fmt.Sprintf("registered as id %d", chargePoint.Id))
	return chargePoint
}

func (h *Handler) persistChargePoint(chargePoint *models.ChargePoint) {
	if h.database == nil {
		return
	}
	if err := h.database.UpdateChargePoint(chargePoint); err != nil {
		h.logger.Error(fmt.Sprintf("persisting charge point %s", chargePoint.Identity), err)
	}
}

func (h *Handler) notify(call func(internal.EventHandler)) {
	if h.events != nil {
		call(h.events)
	}
}

func unknownChargePointError(client ocpp.ChargePointIdentity) *ocpp.Error {
	return ocpp.NewError(ocpp.GenericError, fmt.Sprintf("charge point %s is not registered", client.Identifier))
}
