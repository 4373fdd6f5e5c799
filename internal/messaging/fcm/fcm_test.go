package fcm

import (
	"context"
	"errors"
	"fmt"
	"testing"

	fbmsg "firebase.google.com/go/v4/messaging"
	"github.com/stretchr/testify/require"

	"github.com/fraternet/notify-service/internal/messaging"
)

// fakeSender запоминает вызовы и отвечает заданным образом.
type fakeSender struct {
	sent      []*fbmsg.Message
	multicast []*fbmsg.MulticastMessage

	sendErr error
	// failEvery: каждый n-й токен пачки считается недоставленным (0 значит все доставлены).
	failEvery int
	// multicastErrAt: номер вызова SendEachForMulticast (с 1), на котором вернуть ошибку.
	multicastErrAt int
}

func (f *fakeSender) Send(_ context.Context, m *fbmsg.Message) (string, error) {
	if f.sendErr != nil {
		return "", f.sendErr
	}
	f.sent = append(f.sent, m)
	return fmt.Sprintf("projects/p/messages/%d", len(f.sent)), nil
}

func (f *fakeSender) SendEachForMulticast(_ context.Context, m *fbmsg.MulticastMessage) (*fbmsg.BatchResponse, error) {
	f.multicast = append(f.multicast, m)
	if f.multicastErrAt == len(f.multicast) {
		return nil, errors.New("unavailable")
	}

	resp := &fbmsg.BatchResponse{}
	for i := range m.Tokens {
		ok := f.failEvery == 0 || (i+1)%f.failEvery != 0
		sr := &fbmsg.SendResponse{Success: ok}
		if ok {
			resp.SuccessCount++
		} else {
			resp.FailureCount++
			sr.Error = errors.New("registration-token-not-registered")
		}
		resp.Responses = append(resp.Responses, sr)
	}

	return resp, nil
}

func tokens(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("tok-%03d", i)
	}
	return out
}

func TestNewGateway_ClampsLimit(t *testing.T) {
	t.Parallel()

	require.Equal(t, MaxMulticast, newGateway(&fakeSender{}, 0).limit)
	require.Equal(t, MaxMulticast, newGateway(&fakeSender{}, 10_000).limit)
	require.Equal(t, 7, newGateway(&fakeSender{}, 7).limit)
}

func TestSend_MapsMessage(t *testing.T) {
	t.Parallel()

	fs := &fakeSender{}
	g := newGateway(fs, 0)

	id, err := g.Send(context.Background(), messaging.Message{
		Kind:         messaging.KindMention,
		Token:        "tok-m",
		Notification: messaging.Notification{Title: "Ann Lee mentioned you", Body: "hi @Mo"},
		Data:         map[string]string{"type": "mention", "postId": "p1"},
	})
	require.NoError(t, err)
	require.Equal(t, "projects/p/messages/1", id)

	require.Len(t, fs.sent, 1)
	got := fs.sent[0]
	require.Equal(t, "tok-m", got.Token)
	require.Empty(t, got.Topic)
	require.Equal(t, "Ann Lee mentioned you", got.Notification.Title)
	require.Equal(t, "hi @Mo", got.Notification.Body)
	require.Equal(t, map[string]string{"type": "mention", "postId": "p1"}, got.Data)
	require.Equal(t, "default", got.APNS.Payload.Aps.Sound)
}

func TestSend_TopicAndValidation(t *testing.T) {
	t.Parallel()

	fs := &fakeSender{}
	g := newGateway(fs, 0)

	_, err := g.Send(context.Background(), messaging.Message{Topic: "all_users"})
	require.NoError(t, err)
	require.Equal(t, "all_users", fs.sent[0].Topic)

	_, err = g.Send(context.Background(), messaging.Message{})
	require.ErrorIs(t, err, messaging.ErrNoRecipients)

	_, err = g.Send(context.Background(), messaging.Message{Token: "t", Topic: "x"})
	require.ErrorIs(t, err, messaging.ErrNoRecipients)
	require.Len(t, fs.sent, 1)
}

func TestSend_WrapsClientError(t *testing.T) {
	t.Parallel()

	boom := errors.New("quota exceeded")
	g := newGateway(&fakeSender{sendErr: boom}, 0)

	_, err := g.Send(context.Background(), messaging.Message{Token: "t"})
	require.ErrorIs(t, err, boom)
	require.Contains(t, err.Error(), "messaging/fcm/Send")
}

func TestSendMulticast_ChunksAndAggregates(t *testing.T) {
	t.Parallel()

	fs := &fakeSender{failEvery: 4}
	g := newGateway(fs, 4)

	res, err := g.SendMulticast(context.Background(), messaging.MulticastMessage{
		Kind:         messaging.KindNewPost,
		Tokens:       tokens(10),
		Notification: messaging.Notification{Title: "New Post", Body: "Ann just posted something new!"},
	})
	require.NoError(t, err)

	require.Len(t, fs.multicast, 3)
	require.Len(t, fs.multicast[0].Tokens, 4)
	require.Len(t, fs.multicast[1].Tokens, 4)
	require.Len(t, fs.multicast[2].Tokens, 2)
	require.Equal(t, "New Post", fs.multicast[2].Notification.Title)
	require.Equal(t, "default", fs.multicast[0].APNS.Payload.Aps.Sound)

	require.Equal(t, 8, res.SuccessCount)
	require.Equal(t, 2, res.FailureCount)
	require.Equal(t, []string{"tok-003", "tok-007"}, res.FailedTokens)
}

func TestSendMulticast_EmptyTokens(t *testing.T) {
	t.Parallel()

	fs := &fakeSender{}
	_, err := newGateway(fs, 0).SendMulticast(context.Background(), messaging.MulticastMessage{})
	require.ErrorIs(t, err, messaging.ErrNoRecipients)
	require.Empty(t, fs.multicast)
}

func TestSendMulticast_StopsOnTransportError(t *testing.T) {
	t.Parallel()

	fs := &fakeSender{multicastErrAt: 2}
	g := newGateway(fs, 3)

	res, err := g.SendMulticast(context.Background(), messaging.MulticastMessage{Tokens: tokens(9)})
	require.Error(t, err)
	require.Len(t, fs.multicast, 2)
	require.Equal(t, 3, res.SuccessCount)
}

func TestBatchResult_NilResponse(t *testing.T) {
	t.Parallel()
	require.Equal(t, &messaging.BatchResult{}, batchResult([]string{"a"}, nil))
}
