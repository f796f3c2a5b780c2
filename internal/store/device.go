package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/driftbrowser/drift-core/internal/domain"
	"github.com/driftbrowser/drift-core/internal/id"
)

// metaDeviceKey is the singleton key for this install's device identity.
const metaDeviceKey = "meta:device"

// GetOrCreateDevice returns the install's device identity, minting and
// persisting one on first use. The identity is what other devices use to
// address this one in the sync store, so it must survive restarts.
func (s *Store) GetOrCreateDevice(_ context.Context) (*domain.DeviceIdentity, error) {
	var dev domain.DeviceIdentity
	err := s.get([]byte(metaDeviceKey), &dev)
	if err == nil {
		return &dev, nil
	}
	if !errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("read device identity: %w", err)
	}

	deviceID, err := id.Generate("device")
	if err != nil {
		return nil, fmt.Errorf("generate device id: %w", err)
	}
	dev = domain.DeviceIdentity{DeviceID: deviceID, CreatedAt: time.Now()}
	if err := s.set([]byte(metaDeviceKey), &dev); err != nil {
		return nil, fmt.Errorf("persist device identity: %w", err)
	}
	if s.logger != nil {
		s.logger.Info("device identity created", "device_id", deviceID)
	}
	return &dev, nil
}
