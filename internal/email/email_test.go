package email

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"

	"github.com/Domenick1991/paraglide/config"
	"github.com/Domenick1991/paraglide/internal/domain"
	"github.com/Domenick1991/paraglide/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockCompanyLookup struct {
	mock.Mock
}

func (m *MockCompanyLookup) GetByID(ctx context.Context, id string) (*domain.Company, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Company), args.Error(1)
}

type MockSender struct {
	mock.Mock
}

func (m *MockSender) Send(ctx context.Context, n Notice) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishWithRetry(ctx context.Context, topic, key string, payload interface{}, maxRetries int) error {
	args := m.Called(ctx, topic, key, payload, maxRetries)
	return args.Error(0)
}

func insertEvent() domain.ChangeEvent {
	cid := "c1"
	return domain.ChangeEvent{
		Kind:  domain.ChangeInsert,
		Table: domain.TableBookings,
		Row: domain.Booking{
			ID:           "b1",
			CompanyID:    &cid,
			CustomerName: "Ana Smith",
			Phone:        "+995555100",
			SelectedDate: "2026-10-20",
			People:       2,
			TotalPrice:   450,
			Currency:     "GEL",
		},
	}
}

func TestNotifier_HandleInsert(t *testing.T) {
	companies := &MockCompanyLookup{}
	sender := &MockSender{}
	n := NewNotifier(companies, sender, "noreply@paraglide.ge", domain.LocaleEn, zap.NewNop())
	ctx := context.Background()

	companies.On("GetByID", ctx, "c1").Return(&domain.Company{ID: "c1", Email: "ops@sky.ge"}, nil).Once()
	sender.On("Send", ctx, mock.MatchedBy(func(notice Notice) bool {
		return notice.To == "ops@sky.ge" &&
			notice.From == "noreply@paraglide.ge" &&
			notice.BookingID == "b1" &&
			notice.Subject == "New booking: Ana Smith" &&
			strings.Contains(notice.Body, "Total: 450.00 GEL")
	})).Return(nil).Once()

	err := n.Handle(ctx, insertEvent())

	assert.NoError(t, err)
	companies.AssertExpectations(t)
	sender.AssertExpectations(t)
}

func TestNotifier_Skips(t *testing.T) {
	ctx := context.Background()

	update := insertEvent()
	update.Kind = domain.ChangeUpdate
	otherTable := insertEvent()
	otherTable.Table = "pilots"
	noCompany := insertEvent()
	noCompany.Row.CompanyID = nil

	for name, ev := range map[string]domain.ChangeEvent{
		"update":      update,
		"other table": otherTable,
		"no company":  noCompany,
	} {
		t.Run(name, func(t *testing.T) {
			companies := &MockCompanyLookup{}
			sender := &MockSender{}
			n := NewNotifier(companies, sender, "noreply@paraglide.ge", domain.LocaleEn, zap.NewNop())

			assert.NoError(t, n.Handle(ctx, ev))
			companies.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
			sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
		})
	}
}

func TestNotifier_CompanyProblems(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown company", func(t *testing.T) {
		companies := &MockCompanyLookup{}
		sender := &MockSender{}
		n := NewNotifier(companies, sender, "", domain.LocaleEn, zap.NewNop())
		companies.On("GetByID", ctx, "c1").Return(nil, repository.ErrNotFound).Once()

		assert.NoError(t, n.Handle(ctx, insertEvent()))
		sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
	})

	t.Run("no email", func(t *testing.T) {
		companies := &MockCompanyLookup{}
		sender := &MockSender{}
		n := NewNotifier(companies, sender, "", domain.LocaleEn, zap.NewNop())
		companies.On("GetByID", ctx, "c1").Return(&domain.Company{ID: "c1"}, nil).Once()

		assert.NoError(t, n.Handle(ctx, insertEvent()))
		sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
	})

	t.Run("lookup error", func(t *testing.T) {
		companies := &MockCompanyLookup{}
		n := NewNotifier(companies, &MockSender{}, "", domain.LocaleEn, zap.NewNop())
		companies.On("GetByID", ctx, "c1").Return(nil, errors.New("db down")).Once()

		assert.Error(t, n.Handle(ctx, insertEvent()))
	})

	t.Run("send error", func(t *testing.T) {
		companies := &MockCompanyLookup{}
		sender := &MockSender{}
		n := NewNotifier(companies, sender, "", domain.LocaleEn, zap.NewNop())
		companies.On("GetByID", ctx, "c1").Return(&domain.Company{ID: "c1", Email: "ops@sky.ge"}, nil).Once()
		sender.On("Send", ctx, mock.Anything).Return(errors.New("smtp down")).Once()

		assert.Error(t, n.Handle(ctx, insertEvent()))
	})
}

func TestSMTPSender_Send(t *testing.T) {
	s := NewSMTPSender(config.SMTPConfig{Host: "smtp.example.com", Port: 587, Username: "user", Password: "pass"})

	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte
	s.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		return nil
	}

	err := s.Send(context.Background(), Notice{From: "noreply@paraglide.ge", To: "ops@sky.ge", Subject: "New booking: Ana", Body: "hello"})

	require.NoError(t, err)
	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.Equal(t, "noreply@paraglide.ge", gotFrom)
	assert.Equal(t, []string{"ops@sky.ge"}, gotTo)
	assert.Contains(t, string(gotMsg), "Subject: New booking: Ana\r\n")
	assert.Contains(t, string(gotMsg), "\r\n\r\nhello")
}

func TestSMTPSender_LineBreaksStayInsideHeaders(t *testing.T) {
	s := NewSMTPSender(config.SMTPConfig{Host: "smtp.example.com", Port: 587})
	var gotMsg []byte
	s.send = func(_ string, _ smtp.Auth, _ string, _ []string, msg []byte) error {
		gotMsg = msg
		return nil
	}

	companies := &MockCompanyLookup{}
	n := NewNotifier(companies, s, "noreply@paraglide.ge", domain.LocaleEn, zap.NewNop())
	ctx := context.Background()
	companies.On("GetByID", ctx, "c1").Return(&domain.Company{ID: "c1", Email: "ops@sky.ge"}, nil).Once()

	ev := insertEvent()
	ev.Row.CustomerName = "Eve\r\nBcc: someone@example.com\r\nX-Injected: yes"
	require.NoError(t, n.Handle(ctx, ev))

	header, _, found := strings.Cut(string(gotMsg), "\r\n\r\n")
	require.True(t, found)
	lines := strings.Split(header, "\r\n")
	assert.Len(t, lines, 5)
	for _, line := range lines {
		assert.False(t, strings.HasPrefix(line, "Bcc:"), line)
		assert.False(t, strings.HasPrefix(line, "X-Injected:"), line)
	}
	assert.Contains(t, lines, "Subject: New booking: Eve Bcc: someone@example.com X-Injected: yes")
}

func TestHeaderValue(t *testing.T) {
	assert.Equal(t, "New booking: Ana", headerValue("New booking: Ana"))
	assert.Equal(t, "a b", headerValue("a\r\nb"))
	assert.Equal(t, "a b", headerValue("a\nb\r"))
}

func TestTopicSender_Send(t *testing.T) {
	publisher := &MockPublisher{}
	s := NewTopicSender(publisher, "booking_notices", 3)
	ctx := context.Background()
	notice := Notice{BookingID: "b1", CompanyID: "c1", To: "ops@sky.ge"}

	publisher.On("PublishWithRetry", ctx, "booking_notices", "c1", notice, 3).Return(nil).Once()

	assert.NoError(t, s.Send(ctx, notice))
	publisher.AssertExpectations(t)
}
