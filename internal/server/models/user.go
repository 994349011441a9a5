package models

import (
	"time"

	"github.com/dmitrijs2005/gigbook/internal/tier"
)

type User struct {
	ID           string
	Email        string
	PasswordHash []byte
	Tier         tier.Tier
	CreatedAt    time.Time
}
