// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain entities to keep the domain layer pure and free
// from ORM concerns.
//
// Key Principles:
// 1. Domain entities carry no GORM tags
// 2. Persistence models contain all GORM annotations and table mappings
// 3. Mappers convert between domain entities and persistence models
// 4. Repositories use persistence models for database operations
//
// Structure:
// - base.go: BaseModel, AggregateModel and null helpers
// - retail_raw.go: staging relation holding the unfiltered extract
// - dimensional.go: customers, products, orders, order_items
// - ingestion_run.go: run history
package models
