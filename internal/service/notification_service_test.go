package service

import (
	"context"
	"testing"

	"backend/internal/event"
	"backend/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func enabledPreference(userID uuid.UUID) *model.NotificationPreference {
	pref := model.DefaultPreference(userID)
	return &pref
}

func TestHandleEventEnqueuesForRequester(t *testing.T) {
	requester := &model.User{ID: uuid.New(), Username: "clerk1", Role: model.RoleStaff, Phone: "+84901234567"}
	outbox := &fakeOutboxRepo{}
	svc := NewNotificationService(
		newFakeUserRepo(requester),
		newFakePrefRepo(enabledPreference(requester.ID)),
		&fakeLogRepo{},
		outbox,
	)

	svc.HandleEvent(context.Background(), event.RequestCreated{
		RequestKind:   event.KindItemRequest,
		RequestID:     uuid.New(),
		RequestNumber: "REQ-20260830-00001",
		RequesterID:   requester.ID,
		RequesterName: requester.Username,
	})

	require.Len(t, outbox.jobs, 1)
	job := outbox.jobs[0]
	assert.Equal(t, model.QueueWhatsApp, job.Queue)
	assert.Equal(t, requester.ID, job.UserID)
	assert.Equal(t, model.EventTypeRequestCreated, job.EventType)
	assert.Equal(t, model.JobStatusPending, job.Status)
	assert.Contains(t, job.Payload, "REQ-20260830-00001")
}

func TestHandleEventSuppression(t *testing.T) {
	offMaster := model.DefaultPreference(uuid.Nil)
	offMaster.Enabled = false

	offCategory := model.DefaultPreference(uuid.Nil)
	offCategory.RequestUpdate = false

	tests := []struct {
		name  string
		phone string
		pref  *model.NotificationPreference
	}{
		{"no phone number", "", enabledPreference(uuid.Nil)},
		{"no preference record", "+84901234567", nil},
		{"master switch off", "+84901234567", &offMaster},
		{"category disabled", "+84901234567", &offCategory},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user := &model.User{ID: uuid.New(), Username: "clerk1", Role: model.RoleStaff, Phone: tt.phone}
			prefRepo := newFakePrefRepo()
			if tt.pref != nil {
				tt.pref.UserID = user.ID
				prefRepo = newFakePrefRepo(tt.pref)
			}
			outbox := &fakeOutboxRepo{}
			svc := NewNotificationService(newFakeUserRepo(user), prefRepo, &fakeLogRepo{}, outbox)

			svc.HandleEvent(context.Background(), event.RequestUpdate{
				RequestKind: event.KindItemRequest,
				RequestID:   uuid.New(),
				RequesterID: user.ID,
				Status:      model.RequestStatusApproved,
			})

			assert.Empty(t, outbox.jobs)
		})
	}
}

func TestHandleEventReorderAlertRoutesToOperator(t *testing.T) {
	operator := &model.User{ID: uuid.New(), Username: "storekeeper", Role: model.RoleOperator, Phone: "+84907654321"}
	staff := &model.User{ID: uuid.New(), Username: "clerk1", Role: model.RoleStaff, Phone: "+84901234567"}
	outbox := &fakeOutboxRepo{}
	svc := NewNotificationService(
		newFakeUserRepo(operator, staff),
		newFakePrefRepo(enabledPreference(operator.ID)),
		&fakeLogRepo{},
		outbox,
	)

	svc.HandleEvent(context.Background(), event.ReorderPointAlert{
		EntityKind: model.StockKindItem,
		EntityID:   uuid.New(),
		Name:       "Toner Cartridge",
		Quantity:   2,
		Threshold:  5,
		Unit:       "pcs",
	})

	require.Len(t, outbox.jobs, 1)
	assert.Equal(t, operator.ID, outbox.jobs[0].UserID)
	assert.Equal(t, model.EventTypeReorderAlert, outbox.jobs[0].EventType)
}

func TestHandleEventReorderAlertNoOperator(t *testing.T) {
	outbox := &fakeOutboxRepo{}
	svc := NewNotificationService(newFakeUserRepo(), newFakePrefRepo(), &fakeLogRepo{}, outbox)

	svc.HandleEvent(context.Background(), event.ReorderPointAlert{
		EntityKind: model.StockKindItem,
		EntityID:   uuid.New(),
		Name:       "Toner Cartridge",
		Quantity:   2,
		Threshold:  5,
	})

	assert.Empty(t, outbox.jobs)
}

func TestEnqueueDigest(t *testing.T) {
	operator := &model.User{ID: uuid.New(), Username: "storekeeper", Role: model.RoleOperator, Phone: "+84907654321"}
	outbox := &fakeOutboxRepo{}
	svc := NewNotificationService(
		newFakeUserRepo(operator),
		newFakePrefRepo(enabledPreference(operator.ID)),
		&fakeLogRepo{},
		outbox,
	)

	err := svc.EnqueueDigest(context.Background(), LowStockDigestPayload{
		Entries: []LowStockEntry{
			{Name: "A4 Paper", Quantity: 3, Threshold: 10, Unit: "ream"},
		},
	})
	require.NoError(t, err)

	require.Len(t, outbox.jobs, 1)
	assert.Equal(t, model.EventTypeLowStockDigest, outbox.jobs[0].EventType)
	assert.Contains(t, outbox.jobs[0].Payload, "A4 Paper")
}

func TestEnqueueDigestEmptyEntries(t *testing.T) {
	outbox := &fakeOutboxRepo{}
	svc := NewNotificationService(newFakeUserRepo(), newFakePrefRepo(), &fakeLogRepo{}, outbox)

	require.NoError(t, svc.EnqueueDigest(context.Background(), LowStockDigestPayload{}))
	assert.Empty(t, outbox.jobs)
}

func TestUpdatePreferenceCreatesLazily(t *testing.T) {
	userID := uuid.New()
	prefRepo := newFakePrefRepo()
	svc := NewNotificationService(newFakeUserRepo(), prefRepo, &fakeLogRepo{}, &fakeOutboxRepo{})

	off := false
	quietStart := "22:00"
	quietEnd := "06:00"
	pref, err := svc.UpdatePreference(context.Background(), userID.String(), UpdatePreferenceRequest{
		ReorderAlert: &off,
		QuietStart:   &quietStart,
		QuietEnd:     &quietEnd,
	})
	require.NoError(t, err)
	assert.True(t, pref.Enabled)
	assert.False(t, pref.ReorderAlert)
	assert.Equal(t, "22:00", pref.QuietStart)
	assert.Equal(t, "06:00", pref.QuietEnd)

	stored, err := prefRepo.FindByUserID(context.Background(), userID)
	require.NoError(t, err)
	assert.False(t, stored.ReorderAlert)
}

func TestUpdatePreferencePartialKeepsQuietHours(t *testing.T) {
	userID := uuid.New()
	prefRepo := newFakePrefRepo()
	svc := NewNotificationService(newFakeUserRepo(), prefRepo, &fakeLogRepo{}, &fakeOutboxRepo{})
	ctx := context.Background()

	quietStart := "22:00"
	quietEnd := "06:00"
	_, err := svc.UpdatePreference(ctx, userID.String(), UpdatePreferenceRequest{
		QuietStart: &quietStart,
		QuietEnd:   &quietEnd,
	})
	require.NoError(t, err)

	// Flipping a single category flag leaves the stored quiet hours alone
	off := false
	pref, err := svc.UpdatePreference(ctx, userID.String(), UpdatePreferenceRequest{
		ApprovalNeeded: &off,
	})
	require.NoError(t, err)
	assert.False(t, pref.ApprovalNeeded)
	assert.Equal(t, "22:00", pref.QuietStart)
	assert.Equal(t, "06:00", pref.QuietEnd)

	// Clearing requires an explicit empty value
	empty := ""
	pref, err = svc.UpdatePreference(ctx, userID.String(), UpdatePreferenceRequest{
		QuietStart: &empty,
		QuietEnd:   &empty,
	})
	require.NoError(t, err)
	assert.Empty(t, pref.QuietStart)
	assert.Empty(t, pref.QuietEnd)
}
