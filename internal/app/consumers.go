package app

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/helparo/admin-service/internal/domain"
)

const invalidateTimeout = 5 * time.Second

// UserInvalidator drops cached views for a user.
type UserInvalidator interface {
	InvalidateUser(ctx context.Context, userID string) error
}

// ProfileChangeHandler evicts cached admin views when a profile, booking or payment
// event names a user.
type ProfileChangeHandler struct {
	invalidator UserInvalidator
	logger      *zap.Logger
}

// NewProfileChangeHandler creates a new ProfileChangeHandler.
func NewProfileChangeHandler(invalidator UserInvalidator, logger *zap.Logger) *ProfileChangeHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProfileChangeHandler{invalidator: invalidator, logger: logger.Named("profile_change_consumer")}
}

// HandleProfileChanged processes one delivery. It returns true to ack and false to
// requeue. Malformed payloads are acked so they cannot poison the queue.
func (h *ProfileChangeHandler) HandleProfileChanged(body []byte) bool {
	var event domain.ProfileChangedEvent
	if err := json.Unmarshal(body, &event); err != nil {
		h.logger.Warn("discarding malformed profile change event", zap.Error(err))
		return true
	}

	ids := changedUserIDs(event)
	if len(ids) == 0 {
		h.logger.Debug("profile change event carries no user id")
		return true
	}

	ctx, cancel := context.WithTimeout(context.Background(), invalidateTimeout)
	defer cancel()

	for _, id := range ids {
		if err := h.invalidator.InvalidateUser(ctx, id); err != nil {
			h.logger.Error("failed to invalidate cached details", zap.String("user_id", id), zap.Error(err))
			return false
		}
		h.logger.Debug("invalidated cached details", zap.String("user_id", id))
	}
	return true
}

func changedUserIDs(event domain.ProfileChangedEvent) []string {
	var ids []string
	for _, id := range []string{event.UserID, event.HelperID} {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if len(ids) == 1 && ids[0] == id {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}
