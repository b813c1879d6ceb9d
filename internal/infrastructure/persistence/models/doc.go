// Package models contains GORM-specific persistence models that map to the ledger tables.
// These models are separate from domain entities to keep the domain layer free of ORM
// concerns; each model carries ToDomain/FromDomain mappers used by the repositories.
//
// Structure:
// - base.go: BaseModel and AggregateModel shared by every table
// - accounting.go: accounts, journal entries and lines, settings, mappings, unmapped events
// - consumer.go: consumer ledger (processed_events) and dead letters
// - outbox.go: outbox rows, which also serve as the inbound event inbox
package models
