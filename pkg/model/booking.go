package model

// Booking is a stored remote technical assistance request. Phone and
// MeetingLink are nil when the client left them out or sent null.
type Booking struct {
	ID                string  `json:"id"`
	Name              string  `json:"name"`
	Email             string  `json:"email"`
	Phone             *string `json:"phone"`
	ServiceType       string  `json:"service_type"`
	IssueDescription  string  `json:"issue_description"`
	PreferredDatetime string  `json:"preferred_datetime"`
	Status            string  `json:"status"`
	MeetingLink       *string `json:"meeting_link"`
}

// BookingRequest is the inbound payload. Pointer fields let the validator
// tell a missing or null field apart from an empty string.
type BookingRequest struct {
	Name              *string `json:"name" validate:"required"`
	Email             *string `json:"email" validate:"required"`
	Phone             *string `json:"phone"`
	ServiceType       *string `json:"service_type" validate:"required"`
	IssueDescription  *string `json:"issue_description" validate:"required"`
	PreferredDatetime *string `json:"preferred_datetime" validate:"required"`
	Status            *string `json:"status" validate:"required"`
	MeetingLink       *string `json:"meeting_link"`
}

// ToBooking copies the request into a Booking. Required fields must have
// been validated first; nil required fields become empty strings.
func (r *BookingRequest) ToBooking() *Booking {
	return &Booking{
		Name:              deref(r.Name),
		Email:             deref(r.Email),
		Phone:             clone(r.Phone),
		ServiceType:       deref(r.ServiceType),
		IssueDescription:  deref(r.IssueDescription),
		PreferredDatetime: deref(r.PreferredDatetime),
		Status:            deref(r.Status),
		MeetingLink:       clone(r.MeetingLink),
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func clone(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// StringPtr is a convenience for building optional fields.
func StringPtr(s string) *string {
	return &s
}
