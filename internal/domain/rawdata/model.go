package rawdata

import "time"

type Payload struct {
	Source          string
	EntityType      string
	EntityKey       string
	Competition     string
	Season          string
	Matchday        string
	PayloadJSON     string
	PayloadHash     string
	SourceUpdatedAt *time.Time
}
