package chat

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"talenthub/internal/app/dto"
	domainchat "talenthub/internal/domain/chat"
	domainuser "talenthub/internal/domain/user"
	"talenthub/internal/infra/storage/memory"
)

var (
	student  = Actor{ID: "alice", Role: domainuser.RoleStudent}
	school   = Actor{ID: "bob", Role: domainuser.RoleSchool}
	employer = Actor{ID: "eve", Role: domainuser.RoleEmployer}
	admin    = Actor{ID: "root", Role: domainuser.RoleAdmin}
	student2 = Actor{ID: "carol", Role: domainuser.RoleStudent}
)

type capturedEvent struct {
	Type string
	Key  string
}

type fakePublisher struct {
	mu     sync.Mutex
	events []capturedEvent
}

func (p *fakePublisher) Publish(ctx context.Context, eventType, key string, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, capturedEvent{Type: eventType, Key: key})
	return nil
}

func (p *fakePublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

func newTestService(t *testing.T) (*Service, *memory.Store, *fakePublisher) {
	t.Helper()
	store := memory.NewStore()
	directory := memory.NewUserDirectory()
	for _, a := range []Actor{student, school, employer, admin, student2} {
		directory.Add(domainuser.Profile{
			ID:          a.ID,
			DisplayName: string(a.ID),
			Email:       string(a.ID) + "@example.com",
			Role:        a.Role,
		})
	}
	publisher := &fakePublisher{}
	return NewService(memory.Factory{Store: store}, directory, publisher, nil), store, publisher
}

func TestStartDirectCreatesConversation(t *testing.T) {
	svc, _, publisher := newTestService(t)
	ctx := context.Background()

	conv, err := svc.StartDirect(ctx, student, school.ID)
	require.NoError(t, err)
	assert.False(t, conv.IsGroup)
	assert.Len(t, conv.Participants, 2)
	assert.Equal(t, 0, conv.UnreadCount)
	assert.Equal(t, []string{EventConversationCreated}, publisher.types())
}

func TestStartDirectIsIdempotent(t *testing.T) {
	svc, _, publisher := newTestService(t)
	ctx := context.Background()

	first, err := svc.StartDirect(ctx, student, school.ID)
	require.NoError(t, err)
	second, err := svc.StartDirect(ctx, student, school.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	// the reverse direction lands on the same conversation
	reversed, err := svc.StartDirect(ctx, school, student.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, reversed.ID)

	assert.Len(t, publisher.types(), 1, "only the first call creates")
}

func TestStartDirectConcurrentCreatesOne(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	const workers = 16
	ids := make([]string, workers)
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func(i int) {
			defer wg.Done()
			actor, target := student, school.ID
			if i%2 == 1 {
				actor, target = school, student.ID
			}
			conv, err := svc.StartDirect(ctx, actor, target)
			if err == nil {
				ids[i] = conv.ID
			}
		}(i)
	}
	wg.Wait()

	require.NotEmpty(t, ids[0])
	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
}

func TestStartDirectPermissionMatrix(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.StartDirect(ctx, student, employer.ID)
	require.Error(t, err)
	assert.True(t, domainchat.IsKind(err, domainchat.KindPermissionDenied))

	_, err = svc.StartDirect(ctx, employer, student.ID)
	require.Error(t, err)
	assert.True(t, domainchat.IsKind(err, domainchat.KindPermissionDenied))

	_, err = svc.StartDirect(ctx, student, student2.ID)
	require.Error(t, err)
	assert.True(t, domainchat.IsKind(err, domainchat.KindPermissionDenied))

	_, err = svc.StartDirect(ctx, admin, student.ID)
	assert.NoError(t, err)
}

func TestStartDirectValidation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.StartDirect(ctx, student, student.ID)
	require.Error(t, err)
	assert.True(t, domainchat.IsKind(err, domainchat.KindInvalidRequest))

	_, err = svc.StartDirect(ctx, student, "")
	require.Error(t, err)
	assert.True(t, domainchat.IsKind(err, domainchat.KindInvalidRequest))

	_, err = svc.StartDirect(ctx, student, "ghost")
	require.Error(t, err)
	assert.True(t, domainchat.IsKind(err, domainchat.KindNotFound))
}

func mustStart(t *testing.T, svc *Service, actor Actor, target domainuser.ID) *dto.Conversation {
	t.Helper()
	conv, err := svc.StartDirect(context.Background(), actor, target)
	require.NoError(t, err)
	return conv
}

func mustAppend(t *testing.T, svc *Service, actor Actor, conversationID, text string) *dto.ChatMessage {
	t.Helper()
	msg, err := svc.AppendMessage(context.Background(), actor, AppendMessageParams{
		ConversationID: conversationID,
		Text:           text,
	})
	require.NoError(t, err)
	return msg
}

func TestAppendMessageUpdatesUnreadCounters(t *testing.T) {
	svc, _, publisher := newTestService(t)
	ctx := context.Background()
	conv := mustStart(t, svc, student, school.ID)

	mustAppend(t, svc, student, conv.ID, "hello")
	mustAppend(t, svc, student, conv.ID, "anyone there?")

	fromSchool, err := svc.GetConversation(ctx, school, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, fromSchool.UnreadCount)
	require.NotNil(t, fromSchool.LastMessage)
	assert.Equal(t, "anyone there?", fromSchool.LastMessage.Text)

	fromStudent, err := svc.GetConversation(ctx, student, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, fromStudent.UnreadCount)

	// a reply zeroes the responder and bumps the original sender
	mustAppend(t, svc, school, conv.ID, "yes, hi")
	fromSchool, err = svc.GetConversation(ctx, school, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, fromSchool.UnreadCount)
	fromStudent, err = svc.GetConversation(ctx, student, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, fromStudent.UnreadCount)

	assert.Equal(t, []string{
		EventConversationCreated,
		EventMessageCreated,
		EventMessageCreated,
		EventMessageCreated,
	}, publisher.types())
}

func TestAppendMessageRejectsNonParticipant(t *testing.T) {
	svc, _, _ := newTestService(t)
	conv := mustStart(t, svc, student, school.ID)

	_, err := svc.AppendMessage(context.Background(), employer, AppendMessageParams{
		ConversationID: conv.ID,
		Text:           "let me in",
	})
	require.Error(t, err)
	assert.True(t, domainchat.IsKind(err, domainchat.KindAccessDenied))
}

func TestAppendMessageAtomicityUnderFailure(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()
	conv := mustStart(t, svc, student, school.ID)
	mustAppend(t, svc, student, conv.ID, "first")

	store.FailNextConversationWrite(errors.New("disk on fire"))
	_, err := svc.AppendMessage(ctx, student, AppendMessageParams{
		ConversationID: conv.ID,
		Text:           "doomed",
	})
	require.Error(t, err)

	// neither the message nor the counters survive the rollback
	page, err := svc.ListMessages(ctx, school, ListMessagesParams{ConversationID: conv.ID})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "first", page.Items[0].Text)

	fromSchool, err := svc.GetConversation(ctx, school, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, fromSchool.UnreadCount)
	assert.Equal(t, "first", fromSchool.LastMessage.Text)

	// the store recovers once the fault is consumed
	mustAppend(t, svc, student, conv.ID, "back up")
	fromSchool, err = svc.GetConversation(ctx, school, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, fromSchool.UnreadCount)
}

func TestAppendMessageReplyLinkage(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	conv := mustStart(t, svc, student, school.ID)
	original := mustAppend(t, svc, student, conv.ID, "question")

	reply, err := svc.AppendMessage(ctx, school, AppendMessageParams{
		ConversationID: conv.ID,
		Text:           "answer",
		ReplyTo:        original.ID,
	})
	require.NoError(t, err)
	require.NotNil(t, reply.ReplyTo)
	assert.Equal(t, original.ID, reply.ReplyTo.ID)
	assert.Equal(t, "question", reply.ReplyTo.Text)

	// replies must point inside the same conversation
	other := mustStart(t, svc, student2, school.ID)
	_, err = svc.AppendMessage(ctx, student2, AppendMessageParams{
		ConversationID: other.ID,
		Text:           "cross-thread",
		ReplyTo:        original.ID,
	})
	require.Error(t, err)
	assert.True(t, domainchat.IsKind(err, domainchat.KindInvalidRequest))
}

func TestListMessagesPaginatesCompletely(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	conv := mustStart(t, svc, student, school.ID)

	const total = 25
	for i := 0; i < total; i++ {
		mustAppend(t, svc, student, conv.ID, "msg")
	}

	seen := make(map[string]bool)
	cursor := ""
	pages := 0
	for {
		page, err := svc.ListMessages(ctx, school, ListMessagesParams{
			ConversationID: conv.ID,
			Limit:          10,
			Cursor:         cursor,
		})
		require.NoError(t, err)
		pages++
		require.LessOrEqual(t, len(page.Items), 10)
		for _, item := range page.Items {
			assert.False(t, seen[item.ID], "no duplicates across pages")
			seen[item.ID] = true
		}
		// oldest-first within the page
		for i := 1; i < len(page.Items); i++ {
			assert.False(t, page.Items[i].CreatedAt.Before(page.Items[i-1].CreatedAt))
		}
		if !page.Pagination.HasMore {
			break
		}
		require.NotEmpty(t, page.Pagination.NextCursor)
		cursor = page.Pagination.NextCursor
	}
	assert.Len(t, seen, total)
	assert.Equal(t, 3, pages)
}

func TestListMessagesDefaultLimit(t *testing.T) {
	svc, _, _ := newTestService(t)
	conv := mustStart(t, svc, student, school.ID)
	for i := 0; i < domainchat.DefaultPageLimit+5; i++ {
		mustAppend(t, svc, student, conv.ID, "msg")
	}

	page, err := svc.ListMessages(context.Background(), student, ListMessagesParams{ConversationID: conv.ID})
	require.NoError(t, err)
	assert.Len(t, page.Items, domainchat.DefaultPageLimit)
	assert.True(t, page.Pagination.HasMore)
}

func TestListMessagesDeniedForOutsiders(t *testing.T) {
	svc, _, _ := newTestService(t)
	conv := mustStart(t, svc, student, school.ID)

	_, err := svc.ListMessages(context.Background(), employer, ListMessagesParams{ConversationID: conv.ID})
	require.Error(t, err)
	assert.True(t, domainchat.IsKind(err, domainchat.KindAccessDenied))

	// admins can read any conversation
	_, err = svc.ListMessages(context.Background(), admin, ListMessagesParams{ConversationID: conv.ID})
	assert.NoError(t, err)
}

func TestMarkReadClearsUnreadAndReadSets(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	conv := mustStart(t, svc, student, school.ID)
	mustAppend(t, svc, student, conv.ID, "one")
	mustAppend(t, svc, student, conv.ID, "two")

	updated, err := svc.MarkRead(ctx, school, MarkReadParams{ConversationID: conv.ID})
	require.NoError(t, err)
	assert.Equal(t, 0, updated.UnreadCount)

	page, err := svc.ListMessages(ctx, school, ListMessagesParams{ConversationID: conv.ID})
	require.NoError(t, err)
	for _, item := range page.Items {
		assert.Contains(t, item.ReadBy, string(school.ID))
		assert.Contains(t, item.ReadBy, string(student.ID), "senders read their own messages")
	}
}

func TestMarkReadUpToMessage(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	conv := mustStart(t, svc, student, school.ID)

	first := mustAppend(t, svc, student, conv.ID, "one")
	time.Sleep(2 * time.Millisecond)
	mustAppend(t, svc, student, conv.ID, "two")

	_, err := svc.MarkRead(ctx, school, MarkReadParams{
		ConversationID: conv.ID,
		UpToMessageID:  first.ID,
	})
	require.NoError(t, err)

	page, err := svc.ListMessages(ctx, school, ListMessagesParams{ConversationID: conv.ID})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Contains(t, page.Items[0].ReadBy, string(school.ID))
	assert.NotContains(t, page.Items[1].ReadBy, string(school.ID), "messages after the marker stay unread")
}

func TestMarkReadRejectsForeignMarker(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	conv := mustStart(t, svc, student, school.ID)
	other := mustStart(t, svc, student2, school.ID)
	foreign := mustAppend(t, svc, student2, other.ID, "elsewhere")

	_, err := svc.MarkRead(ctx, school, MarkReadParams{
		ConversationID: conv.ID,
		UpToMessageID:  foreign.ID,
	})
	require.Error(t, err)
	assert.True(t, domainchat.IsKind(err, domainchat.KindInvalidRequest))
}

func TestEditMessageOnlySender(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	conv := mustStart(t, svc, student, school.ID)
	msg := mustAppend(t, svc, student, conv.ID, "draft")

	_, err := svc.EditMessage(ctx, school, msg.ID, "hijacked")
	require.Error(t, err)
	assert.True(t, domainchat.IsKind(err, domainchat.KindAccessDenied))

	_, err = svc.EditMessage(ctx, admin, msg.ID, "hijacked")
	require.Error(t, err, "not even admins edit someone else's words")

	edited, err := svc.EditMessage(ctx, student, msg.ID, "final")
	require.NoError(t, err)
	assert.Equal(t, "final", edited.Text)
	assert.True(t, edited.Edited)
	assert.Equal(t, string(domainchat.StatusEdited), edited.Status)
}

func TestDeleteMessageSenderOrAdmin(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	conv := mustStart(t, svc, student, school.ID)
	msg := mustAppend(t, svc, student, conv.ID, "oops")

	_, err := svc.DeleteMessage(ctx, school, msg.ID)
	require.Error(t, err)
	assert.True(t, domainchat.IsKind(err, domainchat.KindAccessDenied))

	deleted, err := svc.DeleteMessage(ctx, admin, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, domainchat.DeletedTombstone, deleted.Text)
	assert.Equal(t, string(domainchat.StatusDeleted), deleted.Status)

	_, err = svc.EditMessage(ctx, student, msg.ID, "resurrect")
	require.Error(t, err)
	assert.True(t, domainchat.IsKind(err, domainchat.KindInvalidRequest))
}

func TestListConversationsOrderAndPaging(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	first := mustStart(t, svc, school, student.ID)
	second := mustStart(t, svc, school, student2.ID)
	third := mustStart(t, svc, school, employer.ID)

	// activity reorders: oldest conversation becomes the most recent
	time.Sleep(2 * time.Millisecond)
	mustAppend(t, svc, school, first.ID, "bump")

	page, err := svc.ListConversations(ctx, school, ListConversationsParams{})
	require.NoError(t, err)
	require.Len(t, page.Items, 3)
	assert.Equal(t, first.ID, page.Items[0].ID)
	assert.ElementsMatch(t,
		[]string{first.ID, second.ID, third.ID},
		[]string{page.Items[0].ID, page.Items[1].ID, page.Items[2].ID},
	)

	small, err := svc.ListConversations(ctx, school, ListConversationsParams{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, small.Items, 2)
	assert.True(t, small.Pagination.HasMore)

	rest, err := svc.ListConversations(ctx, school, ListConversationsParams{
		Limit:  2,
		Cursor: small.Pagination.NextCursor,
	})
	require.NoError(t, err)
	assert.Len(t, rest.Items, 1)
	assert.False(t, rest.Pagination.HasMore)
}

func TestListConversationsSearch(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	withStudent := mustStart(t, svc, school, student.ID)
	mustStart(t, svc, school, employer.ID)

	page, err := svc.ListConversations(ctx, school, ListConversationsParams{Search: "alice"})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, withStudent.ID, page.Items[0].ID)
}

func TestListConversationsAdminOverride(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	conv := mustStart(t, svc, student, school.ID)

	page, err := svc.ListConversations(ctx, admin, ListConversationsParams{ForUser: student.ID})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, conv.ID, page.Items[0].ID)

	_, err = svc.ListConversations(ctx, school, ListConversationsParams{ForUser: student.ID})
	require.Error(t, err)
	assert.True(t, domainchat.IsKind(err, domainchat.KindAccessDenied))
}

func TestGetConversationAccess(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	conv := mustStart(t, svc, student, school.ID)

	_, err := svc.GetConversation(ctx, employer, conv.ID)
	require.Error(t, err)
	assert.True(t, domainchat.IsKind(err, domainchat.KindAccessDenied))

	got, err := svc.GetConversation(ctx, admin, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, conv.ID, got.ID)

	_, err = svc.GetConversation(ctx, student, "missing")
	require.Error(t, err)
	assert.True(t, domainchat.IsKind(err, domainchat.KindNotFound))
}

func TestConcurrentAppendsAllLand(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	conv := mustStart(t, svc, student, school.ID)

	const appends = 20
	var wg sync.WaitGroup
	wg.Add(appends)
	for i := 0; i < appends; i++ {
		go func(i int) {
			defer wg.Done()
			actor := student
			if i%2 == 1 {
				actor = school
			}
			_, err := svc.AppendMessage(ctx, actor, AppendMessageParams{
				ConversationID: conv.ID,
				Text:           "concurrent",
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool)
	cursor := ""
	for {
		page, err := svc.ListMessages(ctx, student, ListMessagesParams{
			ConversationID: conv.ID,
			Limit:          domainchat.MaxPageLimit,
			Cursor:         cursor,
		})
		require.NoError(t, err)
		for _, item := range page.Items {
			seen[item.ID] = true
		}
		if !page.Pagination.HasMore {
			break
		}
		cursor = page.Pagination.NextCursor
	}
	assert.Len(t, seen, appends)
}
