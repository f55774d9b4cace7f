package middleware

import (
	"context"
	"net/http"
)

const actorSlotKey contextKey = "actorSlot"

// actorSlot is a mutable cell the outermost middleware plants in the
// context. Context values only flow inward, so the auth layer writes the
// authenticated agent id here for the metrics and audit layers wrapped
// around it to read after the handler returns.
type actorSlot struct {
	id string
}

func withActorSlot(r *http.Request) (*http.Request, *actorSlot) {
	if slot, ok := r.Context().Value(actorSlotKey).(*actorSlot); ok {
		return r, slot
	}
	slot := &actorSlot{}
	ctx := context.WithValue(r.Context(), actorSlotKey, slot)
	return r.WithContext(ctx), slot
}

func recordActor(ctx context.Context, id string) {
	if slot, ok := ctx.Value(actorSlotKey).(*actorSlot); ok {
		slot.id = id
	}
}
