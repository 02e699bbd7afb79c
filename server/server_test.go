package server

import (
	"testing"

	"cpsys/internal/config"
)

func TestRemoveSocketIgnoresReplacedSocket(t *testing.T) {
	s := NewServer(&config.Config{})
	stale := &WebSocket{id: "cp001"}
	live := &WebSocket{id: "cp001"}
	s.addSocket(stale)
	// a reconnect registered a new socket under the same identity
	s.mu.Lock()
	s.sockets["cp001"] = live
	s.mu.Unlock()

	if s.removeSocket(stale) {
		t.Error("stale socket reported as still registered")
	}
	if ws, ok := s.Socket("cp001"); !ok || ws != live {
		t.Error("live socket lost when the stale one was removed")
	}

	if !s.removeSocket(live) {
		t.Error("live socket not reported as registered")
	}
	if _, ok := s.Socket("cp001"); ok {
		t.Error("socket still registered after removal")
	}
}

func TestRemoveSocketUnknown(t *testing.T) {
	s := NewServer(&config.Config{})
	if s.removeSocket(&WebSocket{id: "cp404"}) {
		t.Error("unknown socket reported as registered")
	}
}
