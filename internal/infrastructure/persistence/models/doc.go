// Package models contains GORM persistence models that map to database tables.
// Domain entities carry no ORM tags; each model here converts to and from its
// domain aggregate with ToDomain and a ...ModelFromDomain constructor.
package models
