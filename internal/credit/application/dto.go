package application

import (
	"time"

	"github.com/wyfcoding/fooddelivery/internal/credit/domain"
)

// CreditSummaryDTO 用户信用概览
type CreditSummaryDTO struct {
	UserID          uint                 `json:"user_id"`
	Score           int                  `json:"score"`
	Status          string               `json:"status"`
	DiscountPercent int                  `json:"discount_percent"`
	LastUpdate      time.Time            `json:"last_update"`
	Stats           domain.BehaviorStats `json:"stats"`
	History         []HistoryEntryDTO    `json:"history"`
}

// HistoryEntryDTO 信用变更记录
type HistoryEntryDTO struct {
	ID           uint      `json:"id"`
	OldScore     int       `json:"old_score"`
	NewScore     int       `json:"new_score"`
	ChangeAmount int       `json:"change_amount"`
	Reason       string    `json:"reason"`
	TriggeredBy  string    `json:"triggered_by"`
	ReferenceID  *uint     `json:"reference_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

func toHistoryDTO(e *domain.CreditHistory) HistoryEntryDTO {
	return HistoryEntryDTO{
		ID:           e.ID,
		OldScore:     e.OldScore,
		NewScore:     e.NewScore,
		ChangeAmount: e.ChangeAmount,
		Reason:       e.Reason,
		TriggeredBy:  string(e.TriggeredBy),
		ReferenceID:  e.ReferenceID,
		CreatedAt:    e.CreatedAt,
	}
}
