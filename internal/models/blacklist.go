package models

import "time"

// BlacklistKind - что именно занесено в черный список
type BlacklistKind string

const (
	BlacklistMint    BlacklistKind = "mint"    // адрес токена
	BlacklistCreator BlacklistKind = "creator" // адрес создателя (известный rug deployer)
)

// BlacklistEntry представляет запись в черном списке токенов и создателей
type BlacklistEntry struct {
	ID        int           `json:"id" db:"id"`
	Address   string        `json:"address" db:"address"` // base58
	Kind      BlacklistKind `json:"kind" db:"kind"`
	Reason    string        `json:"reason" db:"reason"` // пользовательская заметка
	CreatedAt time.Time     `json:"created_at" db:"created_at"`
}
