package models

import "time"

// Book is the slice of the catalog this service reads. The catalog owns the
// table; AutoMigrate only creates it for local runs and tests.
type Book struct {
	ID        string    `gorm:"column:id;type:varchar(64);primary_key" json:"id"`
	Title     string    `gorm:"column:title;type:varchar(512);not null" json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

func (Book) TableName() string { return "book" }
