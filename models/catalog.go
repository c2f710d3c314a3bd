package models

import "time"

type CatalogItem struct {
	ID          string          `gorm:"primaryKey;type:varchar(64)" json:"id"`
	CategoryID  string          `gorm:"type:varchar(64);index" json:"category_id"`
	Category    CatalogCategory `gorm:"foreignKey:CategoryID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL" json:"-"`
	Name        string          `gorm:"type:varchar(255);not null" json:"name"`
	Price       float64         `gorm:"type:decimal(10,2);not null" json:"price"`
	Available   bool            `gorm:"not null;default:true" json:"available"`
	Description string          `gorm:"type:text" json:"description"`
	ImageURL    string          `gorm:"type:varchar(255)" json:"image_url"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func (CatalogItem) TableName() string { return "catalog_items" }

type CatalogCategory struct {
	ID        string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	Name      string    `gorm:"type:varchar(100)" json:"name"`
	SortOrder int       `json:"sort_order"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (CatalogCategory) TableName() string { return "catalog_categories" }
