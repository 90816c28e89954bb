package notify_test

import (
	"context"
	"errors"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/school_backend/internal/notify"
	"github.com/Skotchmaster/school_backend/internal/notify/mocks"
)

func TestKafkaMailer_SendPasswordResetOTP(t *testing.T) {
	ctrl := gomock.NewController(t)
	pub := mocks.NewMockPublisher(ctrl)

	var got notify.Email
	pub.EXPECT().
		PublishEvent(gomock.Any(), "notifications", "jane@school.edu", gomock.Any()).
		DoAndReturn(func(_ context.Context, _, _ string, event any) error {
			got = event.(notify.Email)
			return nil
		})

	m := notify.NewKafkaMailer(pub, "notifications")
	require.NoError(t, m.SendPasswordResetOTP(context.Background(), "jane@school.edu", "123456"))

	assert.Equal(t, notify.KindPasswordResetOTP, got.Kind)
	assert.Equal(t, "123456", got.Data["otp"])
	assert.False(t, got.CreatedAt.IsZero())
}

func TestKafkaMailer_SendWelcomeEmail(t *testing.T) {
	ctrl := gomock.NewController(t)
	pub := mocks.NewMockPublisher(ctrl)

	var got notify.Email
	pub.EXPECT().
		PublishEvent(gomock.Any(), "mail", "new@school.edu", gomock.Any()).
		DoAndReturn(func(_ context.Context, _, _ string, event any) error {
			got = event.(notify.Email)
			return nil
		})

	m := notify.NewKafkaMailer(pub, "mail")
	require.NoError(t, m.SendWelcomeEmail(context.Background(), "new@school.edu", "New Teacher", "Tmp#12345"))
	assert.Equal(t, notify.KindWelcome, got.Kind)
	assert.Equal(t, "New Teacher", got.Data["name"])
	assert.Equal(t, "Tmp#12345", got.Data["temporary_password"])
}

func TestKafkaMailer_PublishFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	pub := mocks.NewMockPublisher(ctrl)
	pub.EXPECT().PublishEvent(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("broker down"))

	err := notify.NewKafkaMailer(pub, "notifications").SendPasswordResetOTP(context.Background(), "jane@school.edu", "111111")
	require.Error(t, err)
	assert.ErrorContains(t, err, "broker down")
	assert.NotContains(t, err.Error(), "jane@school.edu")
}

func TestLogMailer(t *testing.T) {
	var m notify.Mailer = notify.LogMailer{}
	assert.NoError(t, m.SendPasswordResetOTP(context.Background(), "a@b.c", "123456"))
	assert.NoError(t, m.SendWelcomeEmail(context.Background(), "a@b.c", "A", "pw"))
}
