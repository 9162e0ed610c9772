// internal/domain/tax/entity.go
package tax

import (
	"time"
)

// Tax holds the tax rate charged for a destination country.
// Rate is a whole percentage, e.g. 18 means 18%.
type Tax struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Country   string    `gorm:"uniqueIndex;not null;size:100" json:"country"`
	Rate      int64     `gorm:"not null;default:0" json:"rate"`
	Active    bool      `gorm:"not null" json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName overrides the table name for Tax
func (Tax) TableName() string {
	return "taxes"
}
