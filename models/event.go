package models

import (
	"time"
)

type Event struct {
	ID               string    `json:"id"`
	OwnerID          string    `json:"owner_id"`
	Name             string    `json:"name"`
	Venue            string    `json:"venue"`
	StartTime        time.Time `json:"start_time"`
	TicketLabel      string    `json:"ticket_label"`
	TicketPrice      int64     `json:"ticket_price"` // minor units per ticket
	TicketSold       int       `json:"ticket_sold"`
	GrossRevenue     int64     `json:"gross_revenue"`
	OrganizerRevenue int64     `json:"organizer_revenue"`
	PlatformRevenue  int64     `json:"platform_revenue"`
	PayoutAccount    string    `json:"payout_account,omitempty"`
	Status           string    `json:"status"` // upcoming, ongoing, completed
}
