package models

import "time"

// DeployerRecord - история создателя токенов
type DeployerRecord struct {
	Address       string    `json:"address" db:"address"`
	DeployedCount int       `json:"deployed_count" db:"deployed_count"`
	RuggedCount   int       `json:"rugged_count" db:"rugged_count"`
	LastSeenAt    time.Time `json:"last_seen_at" db:"last_seen_at"`
}

// IsKnownRugger - создатель хотя бы раз делал rug
func (d *DeployerRecord) IsKnownRugger() bool {
	return d != nil && d.RuggedCount > 0
}
