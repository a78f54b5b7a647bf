package domain

import "time"

// ─── Achievement Types ──────────────────────────────────────────────────────

// CriteriaID identifies one achievement rule. IDs are stable: they are the
// uniqueness key for unlock records.
type CriteriaID string

const (
	CriteriaFirstEvent   CriteriaID = "primer_evento"
	CriteriaEventVeteran CriteriaID = "veterano_eventos"
	CriteriaEventLegend  CriteriaID = "leyenda_eventos"
	CriteriaWeekStreak   CriteriaID = "racha_semanal"
	CriteriaIronStreak   CriteriaID = "racha_ferrea"
	CriteriaRiderLevel   CriteriaID = "nivel_rider"
	CriteriaProLevel     CriteriaID = "nivel_pro"
	CriteriaLegendLevel  CriteriaID = "nivel_legend"
)

// Criteria is one achievement rule: a predicate over member stats plus the
// bonus granted on first satisfaction.
type Criteria struct {
	ID          CriteriaID
	Name        string
	Description string
	BonusPoints int64 // 0 = badge only, no ledger entry
	Unlocked    func(UserStats) bool
}

// DefaultCriteria returns the club's achievement catalog.
func DefaultCriteria() []Criteria {
	return []Criteria{
		{
			ID:          CriteriaFirstEvent,
			Name:        "Primer Evento",
			Description: "Asististe a tu primer evento",
			BonusPoints: 50,
			Unlocked:    func(s UserStats) bool { return s.EventsAttended >= 1 },
		},
		{
			ID:          CriteriaEventVeteran,
			Name:        "Veterano de Eventos",
			Description: "Asististe a 10 eventos",
			BonusPoints: 200,
			Unlocked:    func(s UserStats) bool { return s.EventsAttended >= 10 },
		},
		{
			ID:          CriteriaEventLegend,
			Name:        "Leyenda de Eventos",
			Description: "Asististe a 25 eventos",
			BonusPoints: 500,
			Unlocked:    func(s UserStats) bool { return s.EventsAttended >= 25 },
		},
		{
			ID:          CriteriaWeekStreak,
			Name:        "Racha Semanal",
			Description: "Siete días seguidos de actividad",
			BonusPoints: 150,
			Unlocked:    func(s UserStats) bool { return s.CurrentStreak >= 7 || s.BestStreak >= 7 },
		},
		{
			ID:          CriteriaIronStreak,
			Name:        "Racha Férrea",
			Description: "Treinta días seguidos de actividad",
			BonusPoints: 300,
			Unlocked:    func(s UserStats) bool { return s.BestStreak >= 30 },
		},
		{
			ID:          CriteriaRiderLevel,
			Name:        "Nivel Rider",
			Description: "Alcanzaste el nivel Rider",
			BonusPoints: 100,
			Unlocked:    func(s UserStats) bool { return s.TotalEarned >= 1500 },
		},
		{
			ID:          CriteriaProLevel,
			Name:        "Nivel Pro",
			Description: "Alcanzaste el nivel Pro",
			BonusPoints: 300,
			Unlocked:    func(s UserStats) bool { return s.TotalEarned >= 3000 },
		},
		{
			ID:          CriteriaLegendLevel,
			Name:        "Nivel Legend",
			Description: "Alcanzaste el nivel Legend",
			BonusPoints: 500,
			Unlocked:    func(s UserStats) bool { return s.TotalEarned >= 9000 },
		},
	}
}

// Achievement is one unlock record. At most one exists per
// (UserID, CriteriaID) pair — unlocking is idempotent.
type Achievement struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	CriteriaID CriteriaID `json:"criteria_id"`
	UnlockedAt time.Time  `json:"unlocked_at"`
}
