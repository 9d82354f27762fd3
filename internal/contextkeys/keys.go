package contextkeys

import "context"

type profileKey struct{}
type chatIDKey struct{}
type messageKindKey struct{}
type webAppDataKey struct{}

type MessageKind string

const (
	MessageKindText    MessageKind = "text"
	MessageKindCommand MessageKind = "command"
	MessageKindWebApp  MessageKind = "webapp"
	MessageKindUnknown MessageKind = "unknown"
)

func WithProfileID(ctx context.Context, telegramID int64) context.Context {
	return context.WithValue(ctx, profileKey{}, telegramID)
}

func GetProfileID(ctx context.Context) (int64, bool) {
	v := ctx.Value(profileKey{})
	if v == nil {
		return 0, false
	}
	return v.(int64), true
}

func WithChatID(ctx context.Context, chatID int64) context.Context {
	return context.WithValue(ctx, chatIDKey{}, chatID)
}

func GetChatID(ctx context.Context) (int64, bool) {
	v := ctx.Value(chatIDKey{})
	if v == nil {
		return 0, false
	}
	return v.(int64), true
}

func WithMessageKind(ctx context.Context, kind MessageKind) context.Context {
	return context.WithValue(ctx, messageKindKey{}, kind)
}

func GetMessageKind(ctx context.Context) (MessageKind, bool) {
	v := ctx.Value(messageKindKey{})
	if v == nil {
		return MessageKindUnknown, false
	}
	return v.(MessageKind), true
}

func IsTextMessage(ctx context.Context) bool {
	kind, ok := GetMessageKind(ctx)
	return ok && kind == MessageKindText
}

func WithWebAppData(ctx context.Context, data string) context.Context {
	return context.WithValue(ctx, webAppDataKey{}, data)
}

func GetWebAppData(ctx context.Context) (string, bool) {
	v := ctx.Value(webAppDataKey{})
	if v == nil {
		return "", false
	}
	return v.(string), true
}
