package registration

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/campmeet/backend-portal/internal/common"
	"github.com/campmeet/backend-portal/internal/pricing"
	"github.com/campmeet/backend-portal/internal/rates"
)

func TestLodgingOptionMustBelongToEvent(t *testing.T) {
	known := uuid.New()
	snap := rates.Snapshot{Rates: pricing.RateTable{
		LodgingNightly: map[uuid.UUID]pricing.Money{known: 3000},
	}}

	require.NoError(t, lodgingOptionForEvent(snap, known))

	err := lodgingOptionForEvent(snap, uuid.New())
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "VALIDATION", appErr.Code)
}

func TestPreviewDraftPayloadRejectsBadDates(t *testing.T) {
	payload := previewDraftPayload{
		EventID: uuid.NewString(),
		RoomBookings: []draftRoomBookingPayload{
			{
				LodgingOptionID: uuid.NewString(),
				CheckinDate:     time.Date(2026, 7, 3, 0, 0, 0, 0, time.UTC),
				CheckoutDate:    time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC),
			},
		},
	}

	_, err := payload.toDraft()
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "VALIDATION", appErr.Code)
}
