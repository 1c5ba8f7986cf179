package model

import "time"

// ContactMessage is an enquiry submitted through the public contact
// form. Status moves New -> Read -> Responded as admins work through
// the inbox.
type ContactMessage struct {
	ID        uint64
	Name      string
	Email     string
	Phone     string
	Subject   string
	Message   string
	Status    string
	CreatedAt time.Time
}
