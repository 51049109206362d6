package interfaces

// Repository defines the interface for data persistence
type Repository interface {
	Connection() ConnectionRepository
	Mapping() MappingRepository
	Booking() BookingRepository
	Staff() StaffRepository

	Close() error
}
