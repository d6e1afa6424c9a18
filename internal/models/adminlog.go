package models

import "time"

// Действия, записываемые в журнал.
const (
	AdminActionStart     = "START"
	AdminActionReturn    = "RETURN"
	AdminActionTerminate = "TERMINATE"
)

// AdminLog представляет запись журнала действий. Журнал только пополняется:
// записи никогда не изменяются и не удаляются.
type AdminLog struct {
	ID         int
	AdminUID   string
	AdminName  string
	Action     string
	EntityType string
	EntityID   string
	EntityName string
	Time       time.Time
}
