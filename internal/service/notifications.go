package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/stayseat/booking-api/internal/model"
	"github.com/stayseat/booking-api/internal/queue"
	"github.com/stayseat/booking-api/internal/repository"
)

// Audiences of a broadcast.
const (
	AudienceAll      = "all"
	AudienceStudents = "students"
	AudienceVendors  = "vendors"
)

// vendorAudience lists students holding bookings on a vendor's units.
type vendorAudience interface {
	UsersOfVendor(ctx context.Context, vendorID uint64) ([]uint64, error)
}

// dueSource lists pending dues falling due in a window.
type dueSource interface {
	ListDueBetween(ctx context.Context, from, to time.Time) ([]model.Due, error)
}

// NotificationService fans messages out to the push queue and keeps the
// history.  Actual delivery belongs to the external FCM worker.
type NotificationService struct {
	repo      *repository.NotificationRepo
	users     *repository.UserRepo
	audiences []vendorAudience
	dues      []dueSource
	pub       queue.Publisher
	log       *logrus.Logger
	now       func() time.Time
}

func NewNotificationService(repo *repository.NotificationRepo, users *repository.UserRepo, pub queue.Publisher, log *logrus.Logger) *NotificationService {
	return &NotificationService{repo: repo, users: users, pub: pub, log: log, now: time.Now}
}

// AddKind registers the bookings and dues of an inventory kind as audience
// and reminder sources.
func (s *NotificationService) AddKind(bookings vendorAudience, dues dueSource) {
	s.audiences = append(s.audiences, bookings)
	s.dues = append(s.dues, dues)
}

// deliver publishes one message per target and records the batch.
func (s *NotificationService) deliver(ctx context.Context, typ, title, body string, sender *uint64, targets []repository.PushTarget, data map[string]string) (*model.Notification, error) {
	n := &model.Notification{
		BatchID:     uuid.NewString(),
		Type:        typ,
		Title:       title,
		Body:        body,
		SenderID:    sender,
		TargetCount: len(targets),
		CreatedAt:   s.now().UTC(),
	}
	for _, t := range targets {
		msg := queue.PushMessage{BatchID: n.BatchID, UserID: t.UserID, Token: t.Token, Title: title, Body: body, Data: data}
		if err := s.pub.Publish(ctx, queue.PushNotificationQueue, msg); err != nil {
			s.log.WithError(err).WithFields(logrus.Fields{"batch_id": n.BatchID, "user_id": t.UserID}).Warn("push enqueue failed")
			continue
		}
		n.SentCount++
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return nil, fmt.Errorf("record notification: %w", err)
	}
	s.log.WithFields(logrus.Fields{
		"batch_id": n.BatchID,
		"type":     typ,
		"target":   n.TargetCount,
		"sent":     n.SentCount,
	}).Info("notification sent")
	return n, nil
}

// Broadcast sends an admin message to an audience.
func (s *NotificationService) Broadcast(ctx context.Context, a Actor, audience, title, body string) (*model.Notification, error) {
	if !a.IsAdmin() {
		return nil, repository.ErrForbidden
	}
	role := ""
	switch audience {
	case AudienceAll, "":
	case AudienceStudents:
		role = model.RoleStudent
	case AudienceVendors:
		role = model.RoleVendor
	default:
		return nil, fmt.Errorf("%w: unknown audience %q", ErrInvalidSettings, audience)
	}
	targets, err := s.users.PushTargetsByRole(ctx, role)
	if err != nil {
		return nil, err
	}
	sender := a.UserID
	return s.deliver(ctx, model.NotificationBroadcast, title, body, &sender, targets, nil)
}

// VendorOffer sends a vendor's message to the students booked on its
// units.  Vendors may only address their own students.
func (s *NotificationService) VendorOffer(ctx context.Context, a Actor, vendorID uint64, title, body string) (*model.Notification, error) {
	if !a.IsAdmin() && !(a.IsVendor() && a.UserID == vendorID) {
		return nil, repository.ErrForbidden
	}
	seen := make(map[uint64]bool)
	var ids []uint64
	for _, src := range s.audiences {
		users, err := src.UsersOfVendor(ctx, vendorID)
		if err != nil {
			return nil, err
		}
		for _, id := range users {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	targets, err := s.users.PushTargetsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	sender := a.UserID
	return s.deliver(ctx, model.NotificationVendorOffer, title, body, &sender, targets,
		map[string]string{"vendor_id": strconv.FormatUint(vendorID, 10)})
}

// History pages through sent notifications.  Vendors only see their own.
func (s *NotificationService) History(ctx context.Context, a Actor, limit, offset int) ([]model.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(ctx, historyScope(a), limit, offset)
}

func (s *NotificationService) Stats(ctx context.Context, a Actor) (model.NotificationStats, error) {
	return s.repo.Stats(ctx, historyScope(a))
}

func historyScope(a Actor) uint64 {
	if a.IsAdmin() {
		return 0
	}
	return a.UserID
}

// UpdateToken registers the caller's push token.
func (s *NotificationService) UpdateToken(ctx context.Context, userID uint64, token string) error {
	return s.users.UpdateFCMToken(ctx, userID, token)
}

// Test sends a test push to the caller.
func (s *NotificationService) Test(ctx context.Context, a Actor) (*model.Notification, error) {
	u, err := s.users.GetByID(ctx, a.UserID)
	if err != nil {
		return nil, err
	}
	if u.FCMToken == nil || *u.FCMToken == "" {
		return nil, ErrNoPushToken
	}
	sender := a.UserID
	return s.deliver(ctx, model.NotificationTest, "Test notification", "Push notifications are working.", &sender,
		[]repository.PushTarget{{UserID: u.ID, Token: *u.FCMToken}}, nil)
}

// notifyUser sends a system message to one user.  Users without a push
// token are skipped and reported as not notified.
func (s *NotificationService) notifyUser(ctx context.Context, typ string, userID uint64, title, body string, data map[string]string) (bool, error) {
	targets, err := s.users.PushTargetsByIDs(ctx, []uint64{userID})
	if err != nil {
		return false, err
	}
	if len(targets) == 0 {
		return false, nil
	}
	n, err := s.deliver(ctx, typ, title, body, nil, targets, data)
	if err != nil {
		return false, err
	}
	return n.SentCount > 0, nil
}

// HandleBookingEvent turns a booking event from the queue into a push to
// the student.  Unknown event types are acknowledged and ignored.
func (s *NotificationService) HandleBookingEvent(ctx context.Context, raw []byte) error {
	var ev queue.BookingEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return fmt.Errorf("unmarshal booking event: %w", err)
	}
	title, body, ok := bookingMessage(ev)
	if !ok {
		s.log.WithField("type", ev.Type).Debug("booking event ignored")
		return nil
	}
	data := map[string]string{
		"kind":       ev.Kind,
		"booking_id": strconv.FormatUint(ev.BookingID, 10),
		"event":      ev.Type,
	}
	_, err := s.notifyUser(ctx, model.NotificationBooking, ev.UserID, title, body, data)
	return err
}

func bookingMessage(ev queue.BookingEvent) (title, body string, ok bool) {
	what := "seat"
	if ev.Kind == string(model.KindHostel) {
		what = "bed"
	}
	switch ev.Type {
	case queue.EventBookingCreated:
		return "Booking received", fmt.Sprintf("Your %s is booked from %s to %s.", what, ev.StartDate, ev.EndDate), true
	case queue.EventBookingCancelled:
		return "Booking cancelled", fmt.Sprintf("Your %s booking from %s to %s was cancelled.", what, ev.StartDate, ev.EndDate), true
	case queue.EventBookingTransferred:
		return "Booking moved", fmt.Sprintf("Your booking was moved to another %s.", what), true
	case queue.EventPaymentCompleted:
		return "Payment received", fmt.Sprintf("We received %s. Your booking is fully paid.", formatMoney(ev.Amount)), true
	}
	return "", "", false
}

// SendDueReminders notifies students whose dues fall due within
// DueLeadDays.  It returns the number of reminders sent.
func (s *NotificationService) SendDueReminders(ctx context.Context) (int, error) {
	today := model.TruncateDay(s.now())
	until := today.AddDate(0, 0, model.DueLeadDays)
	sent := 0
	for _, src := range s.dues {
		dues, err := src.ListDueBetween(ctx, today, until)
		if err != nil {
			return sent, err
		}
		for _, d := range dues {
			body := fmt.Sprintf("%s is due on %s.", formatMoney(d.Outstanding()), d.DueDate.Format(time.DateOnly))
			data := map[string]string{"due_id": strconv.FormatUint(d.ID, 10)}
			ok, err := s.notifyUser(ctx, model.NotificationDueReminder, d.UserID, "Payment due soon", body, data)
			if err != nil {
				s.log.WithError(err).WithField("due_id", d.ID).Warn("due reminder failed")
				continue
			}
			if ok {
				sent++
			}
		}
	}
	return sent, nil
}

// formatMoney renders paise as rupees.
func formatMoney(paise int64) string {
	return fmt.Sprintf("Rs %d.%02d", paise/100, paise%100)
}
