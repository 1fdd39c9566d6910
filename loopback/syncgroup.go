package loopback

import (
	"sync"

	"github.com/google/uuid"
)

// Sync group registry, shared across all loopback devices in the process.
// Starting a group flips every member to started; hardware would release
// all transfers at the same instant here.
var (
	syncGroupMu sync.Mutex
	syncGroups  = make(map[uuid.UUID][]*Device)
)

func joinSyncGroup(id uuid.UUID, d *Device) {
	syncGroupMu.Lock()
	defer syncGroupMu.Unlock()
	syncGroups[id] = append(syncGroups[id], d)
}

func startSyncGroup(id uuid.UUID) error {
	syncGroupMu.Lock()
	defer syncGroupMu.Unlock()

	members, ok := syncGroups[id]
	if !ok {
		return ErrUnknownGroup
	}
	for _, member := range members {
		member.started = true
	}
	delete(syncGroups, id)
	return nil
}

func leaveSyncGroup(id uuid.UUID, d *Device) {
	syncGroupMu.Lock()
	defer syncGroupMu.Unlock()

	members, ok := syncGroups[id]
	if !ok {
		return
	}
	remaining := members[:0]
	for _, member := range members {
		if member != d {
			remaining = append(remaining, member)
		}
	}
	if len(remaining) == 0 {
		delete(syncGroups, id)
	} else {
		syncGroups[id] = remaining
	}
}
