package types

import "github.com/google/uuid"

// BusinessID identifies a tenant business
type BusinessID string

// StaffID identifies a staff member within a business
type StaffID string

// BookingID identifies a local booking
type BookingID string

// ConnectionID identifies a calendar connection
type ConnectionID string

// MappingID identifies an event mapping
type MappingID string

func NewConnectionID() ConnectionID {
	return ConnectionID(uuid.NewString())
}

func NewMappingID() MappingID {
	return MappingID(uuid.NewString())
}

func NewBookingID() BookingID {
	return BookingID(uuid.NewString())
}

func (x BusinessID) String() string   { return string(x) }
func (x StaffID) String() string      { return string(x) }
func (x BookingID) String() string    { return string(x) }
func (x ConnectionID) String() string { return string(x) }
func (x MappingID) String() string    { return string(x) }
