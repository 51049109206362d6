package memory

import (
	"github.com/slotwise/calsync/pkg/domain/interfaces"
	"github.com/slotwise/calsync/pkg/domain/types"
)

// ErrNotFound is returned when a requested record does not exist
var ErrNotFound = types.ErrNotFound

// Repository is an alias for Memory to match the pattern
type Repository = Memory

// Memory is the in-memory repository used for development and tests.
type Memory struct {
	connection *connectionRepository
	mapping    *mappingRepository
	booking    *bookingRepository
	staff      *staffRepository
}

var _ interfaces.Repository = &Memory{}

func New() *Memory {
	return &Memory{
		connection: newConnectionRepository(),
		mapping:    newMappingRepository(),
		booking:    newBookingRepository(),
		staff:      newStaffRepository(),
	}
}

func (m *Memory) Connection() interfaces.ConnectionRepository {
	return m.connection
}

func (m *Memory) Mapping() interfaces.MappingRepository {
	return m.mapping
}

func (m *Memory) Booking() interfaces.BookingRepository {
	return m.booking
}

func (m *Memory) Staff() interfaces.StaffRepository {
	return m.staff
}

func (m *Memory) Close() error {
	return nil
}
