package model

// User represents a row in the `users` table. Users are identified by the
// badge code printed on their badge; the display name is only used for
// reporting. Both columns carry unique constraints.
//
// Fields:
//  ID      – primary key identifier of the user.
//  Name    – unique display name.
//  BadgeID – unique badge code scanned at the kiosk.
type User struct {
	ID      uint64 // users.id
	Name    string // users.name
	BadgeID string // users.badgeID
}

// Container represents a row in the `containers` table. A container is in
// custody of at most one user at a time; a nil UserID means it is available.
//
// Fields:
//  ID           – primary key identifier of the container.
//  SerialNumber – unique serial scanned from the container label.
//  UserID       – current custodian, nil when the container is on the shelf.
type Container struct {
	ID           uint64  // containers.id
	SerialNumber string  // containers.serial_number
	UserID       *uint64 // containers.user_id (nullable)
}

// ContainerView is a Container joined with the custodian's display name for
// reporting. HolderName is empty when the container is not checked out.
type ContainerView struct {
	ID           uint64
	SerialNumber string
	UserID       *uint64
	HolderName   string
}
