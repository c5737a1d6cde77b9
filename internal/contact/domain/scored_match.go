package domain

// Match scores, one per resolution strategy. A definitive link always wins.
const (
	ScoreDefinitiveLink = 101
	ScoreExactEmail     = 100
	ScoreNameAndDomain  = 75
	ScoreHandleMatch    = 60
	ScoreFuzzyName      = 40
)

// ScoredMatch is a resolution candidate. Transient: computed per resolve
// call, never persisted.
type ScoredMatch struct {
	ContactID  string   `json:"contact_id"`
	Score      int      `json:"score"`
	Reasons    []string `json:"reasons"`
	Definitive bool     `json:"definitive"`
}

// ResolutionAction is the caller-facing decision derived from the matches
type ResolutionAction string

const (
	ActionMerge  ResolutionAction = "merge"
	ActionCreate ResolutionAction = "create"
	ActionReview ResolutionAction = "review"
)

// Resolution pairs the decided action with the best candidate, when any
type Resolution struct {
	Action ResolutionAction
	Best   *ScoredMatch
}
