package model

import "time"

// UserInfo is an account of the assistant. Password holds the HMAC digest, never the plain text.
type UserInfo struct {
	ID         uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	Username   string    `json:"username" gorm:"column:username;type:varchar(20);not null;uniqueIndex"`
	Password   string    `json:"-" gorm:"column:password;type:varchar(64);not null"`
	Email      string    `json:"email" gorm:"column:email;type:varchar(191)"`
	Age        int       `json:"age" gorm:"column:age"`
	Height     float64   `json:"height" gorm:"column:height"`
	Weight     float64   `json:"weight" gorm:"column:weight"`
	CreateTime time.Time `json:"create_time" gorm:"column:create_time;autoCreateTime"`
	UpdateTime time.Time `json:"update_time" gorm:"column:update_time;autoUpdateTime"`
}

func (UserInfo) TableName() string {
	return "userinfo"
}
