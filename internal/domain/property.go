// Package domain holds the pricing and booking-consistency core: entities,
// the nightly rate and fee resolvers, and the ports the app layer depends on.
package domain

type Building struct {
	ID   int64
	Name string
}

type RoomType struct {
	ID         int64
	BuildingID int64
	Name       string
	Capacity   int
}

type Room struct {
	ID         int64
	RoomTypeID int64
	Name       string
	Active     bool
}
