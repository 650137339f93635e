package messaging

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	creditdomain "github.com/wyfcoding/fooddelivery/internal/credit/domain"
	"github.com/wyfcoding/fooddelivery/internal/notification/domain"
)

type notifyCall struct {
	userID uint
	title  string
	kind   domain.NotificationType
}

type fakeNotifier struct {
	calls []notifyCall
}

func (f *fakeNotifier) Notify(_ context.Context, userID uint, title, _ string, kind domain.NotificationType) error {
	f.calls = append(f.calls, notifyCall{userID: userID, title: title, kind: kind})
	return nil
}

func marshalEvent(t *testing.T, event creditdomain.ScoreChangedEvent) []byte {
	t.Helper()
	payload, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	return payload
}

func TestHandleScoreDropWarns(t *testing.T) {
	notifier := &fakeNotifier{}
	consumer := &ScoreChangedConsumer{notifier: notifier}

	payload := marshalEvent(t, creditdomain.ScoreChangedEvent{
		UserID:   7,
		OldScore: 80,
		NewScore: 65,
		Status:   creditdomain.TierAverage,
		Reason:   "Order cancellation",
	})
	if err := consumer.handle(context.Background(), payload); err != nil {
		t.Fatalf("handle: %v", err)
	}

	if len(notifier.calls) != 1 {
		t.Fatalf("notifications = %d, want 1", len(notifier.calls))
	}
	call := notifier.calls[0]
	if call.userID != 7 {
		t.Errorf("user_id = %d, want 7", call.userID)
	}
	if call.kind != domain.NotificationTypeWarning {
		t.Errorf("kind = %q, want warning", call.kind)
	}
}

func TestHandleBlockedTierEscalates(t *testing.T) {
	notifier := &fakeNotifier{}
	consumer := &ScoreChangedConsumer{notifier: notifier}

	payload := marshalEvent(t, creditdomain.ScoreChangedEvent{
		UserID:   7,
		OldScore: 40,
		NewScore: 25,
		Status:   creditdomain.TierBlocked,
		Reason:   "Repeated cancellations",
	})
	if err := consumer.handle(context.Background(), payload); err != nil {
		t.Fatalf("handle: %v", err)
	}

	if len(notifier.calls) != 1 {
		t.Fatalf("notifications = %d, want 1", len(notifier.calls))
	}
	call := notifier.calls[0]
	if call.kind != domain.NotificationTypeError {
		t.Errorf("kind = %q, want error", call.kind)
	}
	if call.title != "Account Restricted" {
		t.Errorf("title = %q, want Account Restricted", call.title)
	}
}

func TestHandleScoreRaiseInforms(t *testing.T) {
	notifier := &fakeNotifier{}
	consumer := &ScoreChangedConsumer{notifier: notifier}

	payload := marshalEvent(t, creditdomain.ScoreChangedEvent{
		UserID:   7,
		OldScore: 70,
		NewScore: 85,
		Status:   creditdomain.TierGood,
		Reason:   "Order completed",
	})
	if err := consumer.handle(context.Background(), payload); err != nil {
		t.Fatalf("handle: %v", err)
	}

	if len(notifier.calls) != 1 {
		t.Fatalf("notifications = %d, want 1", len(notifier.calls))
	}
	if notifier.calls[0].kind != domain.NotificationTypeInfo {
		t.Errorf("kind = %q, want info", notifier.calls[0].kind)
	}
}

func TestHandleUnchangedScoreSkipped(t *testing.T) {
	notifier := &fakeNotifier{}
	consumer := &ScoreChangedConsumer{notifier: notifier}

	payload := marshalEvent(t, creditdomain.ScoreChangedEvent{
		UserID:   7,
		OldScore: 70,
		NewScore: 70,
		Status:   creditdomain.TierAverage,
	})
	if err := consumer.handle(context.Background(), payload); err != nil {
		t.Fatalf("handle: %v", err)
	}

	if len(notifier.calls) != 0 {
		t.Fatalf("notifications = %d, want 0", len(notifier.calls))
	}
}

func TestHandleMalformedPayload(t *testing.T) {
	notifier := &fakeNotifier{}
	consumer := &ScoreChangedConsumer{notifier: notifier}

	err := consumer.handle(context.Background(), []byte("not json"))
	if err == nil || !strings.Contains(err.Error(), "unmarshal") {
		t.Fatalf("err = %v, want unmarshal error", err)
	}
	if len(notifier.calls) != 0 {
		t.Fatalf("notifications = %d, want 0", len(notifier.calls))
	}
}
