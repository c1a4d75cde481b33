package tracker

import (
	"log"

	"github.com/google/uuid"
)

// BrowserIDKey is the storage slot holding the device identifier.
const BrowserIDKey = "leadmagnet_browser_id"

// DeviceID reads the persisted device identifier, creating and storing one
// if absent. Storage failures degrade to an identifier that lives only for
// this session.
func DeviceID(storage Storage) string {
	if storage == nil {
		return uuid.NewString()
	}
	id, ok, err := storage.GetItem(BrowserIDKey)
	if err != nil {
		log.Printf("tracker: reading device identifier failed, using an ephemeral one: %v", err)
		return uuid.NewString()
	}
	if ok && id != "" {
		return id
	}
	id = uuid.NewString()
	if err := storage.SetItem(BrowserIDKey, id); err != nil {
		log.Printf("tracker: persisting device identifier failed: %v", err)
	}
	return id
}

// NewSessionID returns a fresh per-window session identifier.
func NewSessionID() string {
	return uuid.NewString()
}
