package models

// User is one directory row: identity, reporting line, and department
// membership. Consumed read-only by the directory adapter; account
// management lives elsewhere.
type User struct {
	Code       string `gorm:"primaryKey;size:16"`
	ShortName  string `gorm:"size:64"`
	Manager    string `gorm:"size:16;index"`
	Department string `gorm:"size:32;index"`
	Admin      bool   `gorm:"default:false"`
	Active     bool   `gorm:"default:true"`
}
