package registration

import (
	"time"

	"github.com/campmeet/backend-portal/internal/store"
)

type registrationDTO struct {
	ID          string     `json:"id"`
	EventID     string     `json:"eventId"`
	Status      string     `json:"status"`
	Notes       string     `json:"notes,omitempty"`
	AmountTotal int64      `json:"amountTotal"`
	CreatedAt   *time.Time `json:"createdAt,omitempty"`
}

type attendeeDTO struct {
	ID             string `json:"id"`
	FullName       string `json:"fullName"`
	DepartmentCode string `json:"departmentCode"`
	Email          string `json:"email,omitempty"`
	Phone          string `json:"phone,omitempty"`
	QRCodeUID      string `json:"qrCodeUid"`
	TicketStatus   string `json:"ticketStatus"`
	WantsMeals     bool   `json:"wantsMeals"`
}

type itemDTO struct {
	ID          string `json:"id"`
	Kind        string `json:"kind"`
	Description string `json:"description"`
	RefTable    string `json:"refTable,omitempty"`
	RefID       string `json:"refId,omitempty"`
	UnitPrice   int64  `json:"unitPrice"`
	Qty         int32  `json:"qty"`
	Amount      int64  `json:"amount"`
}

type discountDTO struct {
	ID         string     `json:"id"`
	DiscountID string     `json:"discountId"`
	Scope      string     `json:"scope"`
	Amount     int64      `json:"amount"`
	Reason     string     `json:"reason,omitempty"`
	ComputedAt *time.Time `json:"computedAt,omitempty"`
}

type bookingDTO struct {
	ID               string `json:"id"`
	LodgingOptionID  string `json:"lodgingOptionId"`
	CheckinDate      string `json:"checkinDate"`
	CheckoutDate     string `json:"checkoutDate"`
	NumRooms         int32  `json:"numRooms"`
	NumKeys          int32  `json:"numKeys"`
	KeyDepositPerKey int64  `json:"keyDepositPerKey"`
}

type shuttleDTO struct {
	ID           string     `json:"id"`
	AttendeeID   string     `json:"attendeeId"`
	Direction    string     `json:"direction"`
	Airport      string     `json:"airport"`
	Airline      string     `json:"airline,omitempty"`
	FlightNumber string     `json:"flightNumber,omitempty"`
	TravelTime   *time.Time `json:"travelTime,omitempty"`
	Fee          int64      `json:"fee"`
}

func registrationView(r store.Registration) registrationDTO {
	var total int64
	if r.AmountTotal.Valid {
		total = r.AmountTotal.Int64
	}
	return registrationDTO{
		ID:          store.UUIDString(r.ID),
		EventID:     store.UUIDString(r.EventID),
		Status:      r.Status,
		Notes:       store.TextValue(r.Notes),
		AmountTotal: total,
		CreatedAt:   store.TimePtr(r.CreatedAt),
	}
}

func attendeeView(a store.Attendee) attendeeDTO {
	return attendeeDTO{
		ID:             store.UUIDString(a.ID),
		FullName:       a.FullName,
		DepartmentCode: a.DepartmentCode,
		Email:          store.TextValue(a.Email),
		Phone:          store.TextValue(a.Phone),
		QRCodeUID:      a.QRCodeUID,
		TicketStatus:   a.TicketStatus,
		WantsMeals:     a.WantsMeals,
	}
}

func attendeeViews(rows []store.Attendee) []attendeeDTO {
	out := make([]attendeeDTO, 0, len(rows))
	for _, a := range rows {
		out = append(out, attendeeView(a))
	}
	return out
}

func itemViews(rows []store.RegistrationItem) []itemDTO {
	out := make([]itemDTO, 0, len(rows))
	for _, it := range rows {
		dto := itemDTO{
			ID:          store.UUIDString(it.ID),
			Kind:        it.Kind,
			Description: it.Description,
			RefTable:    store.TextValue(it.RefTable),
			UnitPrice:   it.UnitPrice,
			Qty:         it.Qty,
			Amount:      it.Amount,
		}
		if it.RefID.Valid {
			dto.RefID = store.UUIDString(it.RefID)
		}
		out = append(out, dto)
	}
	return out
}

func discountViews(rows []store.RegistrationAppliedDiscount) []discountDTO {
	out := make([]discountDTO, 0, len(rows))
	for _, d := range rows {
		out = append(out, discountDTO{
			ID:         store.UUIDString(d.ID),
			DiscountID: store.UUIDString(d.DiscountID),
			Scope:      d.Scope,
			Amount:     d.AmountApplied,
			Reason:     store.TextValue(d.Reason),
			ComputedAt: store.TimePtr(d.ComputedAt),
		})
	}
	return out
}

func bookingView(b store.RoomBooking) bookingDTO {
	return bookingDTO{
		ID:               store.UUIDString(b.ID),
		LodgingOptionID:  store.UUIDString(b.LodgingOptionID),
		CheckinDate:      store.DateValue(b.CheckinDate).Format("2006-01-02"),
		CheckoutDate:     store.DateValue(b.CheckoutDate).Format("2006-01-02"),
		NumRooms:         b.NumRooms,
		NumKeys:          b.NumKeys,
		KeyDepositPerKey: b.KeyDepositPerKey,
	}
}

func shuttleView(s store.ShuttleRequest) shuttleDTO {
	return shuttleDTO{
		ID:           store.UUIDString(s.ID),
		AttendeeID:   store.UUIDString(s.AttendeeID),
		Direction:    s.Direction,
		Airport:      s.Airport,
		Airline:      store.TextValue(s.Airline),
		FlightNumber: store.TextValue(s.FlightNumber),
		TravelTime:   store.TimePtr(s.TravelTime),
		Fee:          s.Fee,
	}
}
