package chat

import (
	"context"
	"sync"
	"time"
)

// countdown is an armed edit/delete window for one message. Both counters
// tick down in lockstep; a counter at zero permanently disables its action
// for the message.
type countdown struct {
	chatID     string
	messageID  string
	editLeft   int
	deleteLeft int
}

// Windows tracks at most one armed message per user: the most recent
// non-deleted message the user authored in their currently open chat. All
// entries tick on one shared one-second timer.
type Windows struct {
	mu     sync.Mutex
	active map[string]*countdown
}

// NewWindows creates an empty registry.
func NewWindows() *Windows {
	return &Windows{active: make(map[string]*countdown)}
}

// Arm targets the message with fresh countdowns, replacing any in-flight
// window the user had. Zero seconds disables the corresponding action
// immediately; if both are zero nothing is armed.
func (w *Windows) Arm(userID, chatID, messageID string, editSecs, deleteSecs int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if editSecs <= 0 && deleteSecs <= 0 {
		delete(w.active, userID)
		return
	}
	if editSecs < 0 {
		editSecs = 0
	}
	if deleteSecs < 0 {
		deleteSecs = 0
	}
	w.active[userID] = &countdown{
		chatID:     chatID,
		messageID:  messageID,
		editLeft:   editSecs,
		deleteLeft: deleteSecs,
	}
}

// Abandon drops the user's window when it no longer targets the open chat,
// typically on a chat switch.
func (w *Windows) Abandon(userID, openChatID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if cd, ok := w.active[userID]; ok && cd.chatID != openChatID {
		delete(w.active, userID)
	}
}

// Drop removes the user's window unconditionally.
func (w *Windows) Drop(userID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.active, userID)
}

// Tick advances every armed window by one second, discarding exhausted ones.
func (w *Windows) Tick() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for userID, cd := range w.active {
		if cd.editLeft > 0 {
			cd.editLeft--
		}
		if cd.deleteLeft > 0 {
			cd.deleteLeft--
		}
		if cd.editLeft == 0 && cd.deleteLeft == 0 {
			delete(w.active, userID)
		}
	}
}

// CanEdit reports whether the user may still edit the message.
func (w *Windows) CanEdit(userID, chatID, messageID string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	cd, ok := w.active[userID]
	return ok && cd.chatID == chatID && cd.messageID == messageID && cd.editLeft > 0
}

// CanDelete reports whether the user may still delete the message.
func (w *Windows) CanDelete(userID, chatID, messageID string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	cd, ok := w.active[userID]
	return ok && cd.chatID == chatID && cd.messageID == messageID && cd.deleteLeft > 0
}

// Remaining returns the seconds left for the user's armed message.
func (w *Windows) Remaining(userID string) (chatID, messageID string, editLeft, deleteLeft int, ok bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	cd, exists := w.active[userID]
	if !exists {
		return "", "", 0, 0, false
	}
	return cd.chatID, cd.messageID, cd.editLeft, cd.deleteLeft, true
}

// Run ticks the registry once per second until the context ends.
func (w *Windows) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Tick()
		}
	}
}
