package footballdata

type matchesEnvelope struct {
	Matches []matchItem `json:"matches"`
}

type matchItem struct {
	ID       int64      `json:"id"`
	UTCDate  string     `json:"utcDate"`
	Status   string     `json:"status"`
	Matchday *int       `json:"matchday"`
	Season   seasonItem `json:"season"`
	HomeTeam teamItem   `json:"homeTeam"`
	AwayTeam teamItem   `json:"awayTeam"`
	Score    scoreItem  `json:"score"`
}

type seasonItem struct {
	ID        int64  `json:"id"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

type teamItem struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	ShortName string `json:"shortName"`
	TLA       string `json:"tla"`
	Crest     string `json:"crest"`
}

type scoreItem struct {
	Winner   string    `json:"winner"`
	FullTime scorePair `json:"fullTime"`
}

type scorePair struct {
	Home *int `json:"home"`
	Away *int `json:"away"`
}
