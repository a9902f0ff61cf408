package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"laundry/internal/apperror"
	"laundry/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newInvoiceFixture() (*store, InvoiceNumberService) {
	s := newStore()
	svc := NewInvoiceNumberService(InvoiceNumberServiceDeps{
		Settings:  &fakeSettingsRepo{s: s},
		Orders:    &fakeOrderRepo{s: s},
		Audit:     &fakeAuditRepo{s: s},
		TxManager: &fakeTxManager{s: s},
		Clock:     fixedClock,
	})
	return s, svc
}

func TestFormatInvoiceNumber(t *testing.T) {
	at := time.Date(2024, 11, 7, 9, 30, 0, 0, time.UTC)
	tests := []struct {
		name     string
		settings model.InvoiceSettings
		counter  int64
		want     string
	}{
		{"baseline", baselineSettings(), 1, "INV-2024-11-0001"},
		{"full date", model.InvoiceSettings{Prefix: "LD", IncludeYear: true, IncludeMonth: true, IncludeDay: true, DigitCount: 5}, 42, "LD-2024-11-07-00042"},
		{"no date", model.InvoiceSettings{Prefix: "DT", DigitCount: 3}, 7, "DT-007"},
		{"counter wider than padding", model.InvoiceSettings{Prefix: "X", DigitCount: 2}, 1234, "X-1234"},
		{"day only", model.InvoiceSettings{Prefix: "D", IncludeDay: true, DigitCount: 1}, 9, "D-07-9"},
		{"digit count floor", model.InvoiceSettings{Prefix: "Z"}, 3, "Z-3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatInvoiceNumber(tt.settings, tt.counter, at))
		})
	}
}

func TestInvoiceLockKey(t *testing.T) {
	id := uuid.MustParse("6f1c2a7e-1d2b-4c3d-9e8f-0a1b2c3d4e5f")
	assert.Equal(t, "invoice-settings:default", InvoiceLockKey(nil))
	assert.Equal(t, "invoice-settings:6f1c2a7e-1d2b-4c3d-9e8f-0a1b2c3d4e5f", InvoiceLockKey(&id))
}

func TestPreviewDoesNotCreateDefaultSettings(t *testing.T) {
	s, svc := newInvoiceFixture()

	next, err := svc.Preview(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "INV-2024-03-0001", next)
	assert.Empty(t, s.settings)
}

func TestAllocateCreatesBaselineOnce(t *testing.T) {
	s, svc := newInvoiceFixture()
	ctx := context.Background()

	first, used, err := svc.Allocate(ctx, "", nil)
	require.NoError(t, err)
	require.NotNil(t, used)
	second, _, err := svc.Allocate(ctx, "", nil)
	require.NoError(t, err)

	assert.Equal(t, "INV-2024-03-0001", first)
	assert.Equal(t, "INV-2024-03-0002", second)
	require.Len(t, s.settings, 1)
	assert.True(t, s.settings[*used].IsDefault)
	assert.Equal(t, int64(3), s.settings[*used].CurrentCounter)
}

func TestAllocateManualNumber(t *testing.T) {
	s, svc := newInvoiceFixture()
	ctx := context.Background()
	s.orders[uuid.New()] = model.Order{InvoiceNumber: "TAKEN-1"}

	number, used, err := svc.Allocate(ctx, "  FREE-1 ", nil)
	require.NoError(t, err)
	assert.Equal(t, "FREE-1", number)
	assert.Nil(t, used)

	_, _, err = svc.Allocate(ctx, "TAKEN-1", nil)
	cause := requireAppError(t, err, apperror.KindConflict, apperror.CodeDuplicateInvoiceNumber)
	assert.Equal(t, "TAKEN-1", cause.Details["invoice_number"])
}

func TestAllocateGivesUpAfterBoundedAttempts(t *testing.T) {
	s, svc := newInvoiceFixture()
	settings := model.InvoiceSettings{ID: uuid.New(), Name: "Tiny", Prefix: "X", DigitCount: 1, CurrentCounter: 1}
	s.settings[settings.ID] = settings
	for i := 1; i <= maxAllocationAttempts; i++ {
		s.orders[uuid.New()] = model.Order{InvoiceNumber: fmt.Sprintf("X-%d", i)}
	}

	_, _, err := svc.Allocate(context.Background(), "", &settings.ID)

	requireAppError(t, err, apperror.KindConflict, apperror.CodeDuplicateInvoiceNumber)
	assert.Equal(t, int64(1), s.settings[settings.ID].CurrentCounter)
}

func TestAllocateCounterStep(t *testing.T) {
	tests := []struct {
		name    string
		taken   []string
		want    string
		counter int64
	}{
		{"no collision", nil, "INV-2024-03-0005", 6},
		{"one manual collision", []string{"INV-2024-03-0005"}, "INV-2024-03-0006", 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, svc := newInvoiceFixture()
			settings := baselineSettings()
			settings.ID = uuid.New()
			settings.CurrentCounter = 5
			s.settings[settings.ID] = settings
			for _, number := range tt.taken {
				s.orders[uuid.New()] = model.Order{InvoiceNumber: number}
			}

			number, _, err := svc.Allocate(context.Background(), "", &settings.ID)

			require.NoError(t, err)
			assert.Equal(t, tt.want, number)
			assert.Equal(t, tt.counter, s.settings[settings.ID].CurrentCounter)
		})
	}
}

// racingSettingsRepo inserts a competing default right before the service's
// own first-default insert.
type racingSettingsRepo struct {
	*fakeSettingsRepo
	winner model.InvoiceSettings
}

func (r *racingSettingsRepo) CreateDefault(ctx context.Context, st *model.InvoiceSettings) error {
	if err := r.Create(ctx, &r.winner); err != nil {
		return err
	}
	return r.fakeSettingsRepo.CreateDefault(ctx, st)
}

func TestAllocateConcurrentFirstDefault(t *testing.T) {
	s := newStore()
	repo := &racingSettingsRepo{
		fakeSettingsRepo: &fakeSettingsRepo{s: s},
		winner:           model.InvoiceSettings{ID: uuid.New(), Name: "Other", Prefix: "RACE", DigitCount: 4, CurrentCounter: 1, IsDefault: true},
	}
	svc := NewInvoiceNumberService(InvoiceNumberServiceDeps{
		Settings:  repo,
		Orders:    &fakeOrderRepo{s: s},
		Audit:     &fakeAuditRepo{s: s},
		TxManager: &fakeTxManager{s: s},
		Clock:     fixedClock,
	})

	number, used, err := svc.Allocate(context.Background(), "", nil)

	require.NoError(t, err)
	assert.Equal(t, "RACE-0001", number)
	require.NotNil(t, used)
	assert.Equal(t, repo.winner.ID, *used)
	require.Len(t, s.settings, 1)
	assert.Equal(t, int64(2), s.settings[repo.winner.ID].CurrentCounter)
}

func TestAllocateUnknownSettings(t *testing.T) {
	_, svc := newInvoiceFixture()
	id := uuid.New()

	_, _, err := svc.Allocate(context.Background(), "", &id)
	requireAppError(t, err, apperror.KindNotFound, apperror.CodeSettingsNotFound)
}

func TestSetDefaultMovesFlag(t *testing.T) {
	s, svc := newInvoiceFixture()
	ctx := context.Background()

	a, err := svc.CreateSettings(ctx, InvoiceSettingsRequest{Name: "Main", Prefix: "INV", IncludeYear: true, DigitCount: 4, IsDefault: true}, "")
	require.NoError(t, err)
	b, err := svc.CreateSettings(ctx, InvoiceSettingsRequest{Name: "Express", Prefix: "EXP", DigitCount: 3}, "")
	require.NoError(t, err)
	assert.True(t, a.IsDefault)
	assert.False(t, b.IsDefault)
	assert.Equal(t, "EXP-001", b.NextNumber)

	resp, err := svc.SetDefault(ctx, b.ID, "")
	require.NoError(t, err)
	assert.True(t, resp.IsDefault)

	defaults := 0
	for _, st := range s.settings {
		if st.IsDefault {
			defaults++
			assert.Equal(t, b.ID, st.ID.String())
		}
	}
	assert.Equal(t, 1, defaults)

	next, err := svc.Preview(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, "EXP-001", next)
}

func TestDeleteSettings(t *testing.T) {
	s, svc := newInvoiceFixture()
	ctx := context.Background()

	main, err := svc.CreateSettings(ctx, InvoiceSettingsRequest{Name: "Main", Prefix: "INV", DigitCount: 4, IsDefault: true}, "")
	require.NoError(t, err)
	spare, err := svc.CreateSettings(ctx, InvoiceSettingsRequest{Name: "Spare", Prefix: "SP", DigitCount: 4}, "")
	require.NoError(t, err)

	err = svc.DeleteSettings(ctx, main.ID, "")
	requireAppError(t, err, apperror.KindConflict, apperror.CodeDefaultSettingsLocked)
	assert.Len(t, s.settings, 2)

	require.NoError(t, svc.DeleteSettings(ctx, spare.ID, ""))
	assert.Len(t, s.settings, 1)

	err = svc.DeleteSettings(ctx, spare.ID, "")
	requireAppError(t, err, apperror.KindNotFound, apperror.CodeSettingsNotFound)
}

func TestUpdateSettingsKeepsCounterUnlessGiven(t *testing.T) {
	s, svc := newInvoiceFixture()
	ctx := context.Background()
	created, err := svc.CreateSettings(ctx, InvoiceSettingsRequest{Name: "Main", Prefix: "INV", DigitCount: 4, CurrentCounter: 12}, "")
	require.NoError(t, err)

	updated, err := svc.UpdateSettings(ctx, created.ID, InvoiceSettingsRequest{Name: "Main", Prefix: "LD", IncludeDay: true, DigitCount: 2}, "")
	require.NoError(t, err)
	assert.Equal(t, int64(12), updated.CurrentCounter)
	assert.Equal(t, "LD-05-12", updated.NextNumber)

	updated, err = svc.UpdateSettings(ctx, created.ID, InvoiceSettingsRequest{Name: "Main", Prefix: "LD", DigitCount: 2, CurrentCounter: 1}, "")
	require.NoError(t, err)
	assert.Equal(t, "LD-01", updated.NextNumber)
	assert.Equal(t, int64(1), s.settings[uuid.MustParse(created.ID)].CurrentCounter)
}
