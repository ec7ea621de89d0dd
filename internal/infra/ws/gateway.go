package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sort"
	"strings"

	"talenthub/internal/app/dto"
	chatservice "talenthub/internal/app/services/chat"
	domainchat "talenthub/internal/domain/chat"
	domainuser "talenthub/internal/domain/user"
)

// Gateway relays chat operations between live connections and the chat
// service. All authorization goes through the service before any room
// operation; broadcasts happen strictly after the service call (and thus the
// underlying commit) returns.
type Gateway struct {
	Service  *chatservice.Service
	Registry *Registry
	Logger   *slog.Logger
}

func NewGateway(service *chatservice.Service, logger *slog.Logger) *Gateway {
	return &Gateway{
		Service:  service,
		Registry: NewRegistry(),
		Logger:   logger,
	}
}

// Connect binds an authenticated session to its personal channel.
func (g *Gateway) Connect(sess Session) {
	g.Registry.Subscribe(PersonalChannel(sess.UserID()), sess)
}

// Disconnect removes the session everywhere and announces the departure in
// every conversation channel it had joined.
func (g *Gateway) Disconnect(sess Session) {
	channels := g.Registry.UnsubscribeAll(sess)
	for _, channel := range channels {
		if channel == PersonalChannel(sess.UserID()) {
			continue
		}
		g.Registry.Broadcast(channel, Event{
			Event: EventUserOffline,
			Data: presencePayload{
				ConversationID: strings.TrimPrefix(channel, "conversation:"),
				UserID:         string(sess.UserID()),
			},
		}, sess)
	}
}

// HandleEvent dispatches one inbound client event. Failures are reported as
// error events on the same session; the connection survives.
func (g *Gateway) HandleEvent(ctx context.Context, sess Session, actor chatservice.Actor, evt InboundEvent) {
	var err error
	switch evt.Event {
	case EventConversationJoin:
		err = g.handleJoin(ctx, sess, actor, evt.Data)
	case EventConversationLeave:
		err = g.handleLeave(sess, evt.Data)
	case EventMessageSend:
		err = g.handleSend(ctx, sess, actor, evt.Data)
	case EventTypingStart, EventTypingStop:
		err = g.handleTyping(ctx, sess, actor, evt.Event, evt.Data)
	case EventMarkRead:
		err = g.handleMarkRead(ctx, sess, actor, evt.Data)
	default:
		err = domainchat.InvalidRequest("unknown event: " + evt.Event)
	}
	if err != nil {
		g.sendError(sess, err)
	}
}

func (g *Gateway) handleJoin(ctx context.Context, sess Session, actor chatservice.Actor, data json.RawMessage) error {
	var payload conversationPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return domainchat.InvalidRequest("malformed join payload")
	}
	if err := g.Service.AuthorizeParticipant(ctx, actor, payload.ConversationID); err != nil {
		return err
	}
	channel := ConversationChannel(payload.ConversationID)
	g.Registry.Subscribe(channel, sess)
	g.Registry.Broadcast(channel, Event{
		Event: EventUserOnline,
		Data:  presencePayload{ConversationID: payload.ConversationID, UserID: string(actor.ID)},
	}, sess)
	return nil
}

func (g *Gateway) handleLeave(sess Session, data json.RawMessage) error {
	var payload conversationPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return domainchat.InvalidRequest("malformed leave payload")
	}
	channel := ConversationChannel(payload.ConversationID)
	g.Registry.Unsubscribe(channel, sess)
	g.Registry.Broadcast(channel, Event{
		Event: EventUserOffline,
		Data:  presencePayload{ConversationID: payload.ConversationID, UserID: string(sess.UserID())},
	}, sess)
	return nil
}

func (g *Gateway) handleSend(ctx context.Context, sess Session, actor chatservice.Actor, data json.RawMessage) error {
	var payload sendMessagePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return domainchat.InvalidRequest("malformed message payload")
	}
	attachments := make([]domainchat.Attachment, 0, len(payload.Attachments))
	for _, a := range payload.Attachments {
		attachments = append(attachments, domainchat.Attachment{
			URL:      a.URL,
			Type:     a.Type,
			Name:     a.Name,
			Size:     a.Size,
			MimeType: a.MimeType,
		})
	}
	message, err := g.Service.AppendMessage(ctx, actor, chatservice.AppendMessageParams{
		ConversationID: payload.ConversationID,
		Text:           payload.Text,
		Attachments:    attachments,
		ReplyTo:        payload.ReplyTo,
	})
	if err != nil {
		return err
	}
	g.FanOutMessage(ctx, message, actor.ID)
	return nil
}

// FanOutMessage broadcasts a committed message: message:new into the
// conversation channel, and a lighter conversation:update to every other
// participant's personal channel so badges update even for users not
// currently viewing the conversation. The HTTP send path calls this too.
func (g *Gateway) FanOutMessage(ctx context.Context, message *dto.ChatMessage, sender domainuser.ID) {
	g.Registry.Broadcast(ConversationChannel(message.ConversationID), Event{Event: EventMessageNew, Data: message}, nil)

	conv, err := g.Service.Snapshot(ctx, message.ConversationID)
	if err != nil {
		g.logWarn("fan-out snapshot failed", "conversation_id", message.ConversationID, "error", err)
		return
	}
	for _, p := range conv.OtherParticipants(sender) {
		update := conversationUpdatePayload{
			ConversationID: conv.ID,
			UnreadCount:    conv.UnreadFor(p.UserID),
		}
		if conv.LastMessage != nil {
			update.LastMessage = &dto.MessageSummary{
				ID:        conv.LastMessage.ID,
				SenderID:  string(conv.LastMessage.SenderID),
				Text:      conv.LastMessage.Text,
				CreatedAt: conv.LastMessage.CreatedAt,
			}
		}
		g.Registry.Broadcast(PersonalChannel(p.UserID), Event{Event: EventConversationUpdate, Data: update}, nil)
	}
}

func (g *Gateway) handleTyping(ctx context.Context, sess Session, actor chatservice.Actor, event string, data json.RawMessage) error {
	var payload conversationPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return domainchat.InvalidRequest("malformed typing payload")
	}
	return g.BroadcastTyping(ctx, actor, payload.ConversationID, event == EventTypingStart, sess)
}

// BroadcastTyping relays a typing indicator to the conversation channel.
// Not persisted. Also serves the HTTP typing endpoint (skip nil).
func (g *Gateway) BroadcastTyping(ctx context.Context, actor chatservice.Actor, conversationID string, started bool, skip Session) error {
	if err := g.Service.AuthorizeParticipant(ctx, actor, conversationID); err != nil {
		return err
	}
	event := EventTypingStop
	if started {
		event = EventTypingStart
	}
	g.Registry.Broadcast(ConversationChannel(conversationID), Event{
		Event: event,
		Data:  typingPayload{ConversationID: conversationID, UserID: string(actor.ID)},
	}, skip)
	return nil
}

func (g *Gateway) handleMarkRead(ctx context.Context, sess Session, actor chatservice.Actor, data json.RawMessage) error {
	var payload markReadPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return domainchat.InvalidRequest("malformed mark-read payload")
	}
	if _, err := g.Service.MarkRead(ctx, actor, chatservice.MarkReadParams{
		ConversationID: payload.ConversationID,
		UpToMessageID:  payload.UpToMessageID,
	}); err != nil {
		return err
	}
	g.BroadcastRead(actor, payload.ConversationID, payload.UpToMessageID)
	return nil
}

// BroadcastRead announces a committed read receipt to the conversation
// channel. The HTTP mark-read path calls this too.
func (g *Gateway) BroadcastRead(actor chatservice.Actor, conversationID, upToMessageID string) {
	g.Registry.Broadcast(ConversationChannel(conversationID), Event{
		Event: EventMessageRead,
		Data: readReceiptPayload{
			ConversationID: conversationID,
			UserID:         string(actor.ID),
			UpToMessageID:  upToMessageID,
		},
	}, nil)
}

// OnlineUsers returns the de-duplicated user ids currently subscribed to the
// conversation channel.
func (g *Gateway) OnlineUsers(conversationID string) []string {
	seen := make(map[string]struct{})
	for _, sess := range g.Registry.MembersOf(ConversationChannel(conversationID)) {
		seen[string(sess.UserID())] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (g *Gateway) sendError(sess Session, err error) {
	message := "internal error"
	var chatErr *domainchat.Error
	if errors.As(err, &chatErr) {
		message = chatErr.Message
	}
	sess.Send(Event{Event: EventError, Data: errorPayload{
		Kind:    string(domainchat.KindOf(err)),
		Message: message,
	}})
}

func (g *Gateway) logWarn(msg string, args ...any) {
	if g.Logger != nil {
		g.Logger.Warn(msg, args...)
	}
}
