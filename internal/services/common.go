package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"dispatch-system/pkg/contextkeys"
	apperrors "dispatch-system/pkg/errors"
)

// clock - источник времени сервисов. Секунды без долей: длительности считаются в секундах.
type clock func() time.Time

func systemClock() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}

func actorFrom(ctx context.Context) (string, string, error) {
	actorID, ok := ctx.Value(contextkeys.ActorIDKey).(string)
	if !ok || actorID == "" {
		return "", "", apperrors.ErrActorNotFoundInContext
	}
	role, _ := ctx.Value(contextkeys.ActorRoleKey).(string)
	return actorID, role, nil
}

func newID() string {
	return uuid.NewString()
}

// mustJSON - снимки сущностей сериализуются всегда; ошибка означает баг в типах.
func mustJSON(v interface{}) json.RawMessage {
	if v == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return raw
}
