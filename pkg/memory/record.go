package memory

import "time"

const (
	// FreshnessWindow is how recently a sub-record must have been updated to
	// be included in an assembled prompt.
	FreshnessWindow = 7 * 24 * time.Hour

	// MinConfidence is the minimum extraction confidence for a sub-record to
	// be included in an assembled prompt.
	MinConfidence = 0.6
)

// Profile holds distilled facts about the user's goals and preferences.
type Profile struct {
	Goal        string    `json:"goal"`
	Preferences string    `json:"preferences"`
	Confidence  float64   `json:"confidence"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Project holds distilled facts about the user's current project.
type Project struct {
	Name       string    `json:"name"`
	TechStack  string    `json:"techStack"`
	Status     string    `json:"status"`
	Confidence float64   `json:"confidence"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Technical holds distilled technical context: decisions, errors, architecture.
type Technical struct {
	Context    string    `json:"context"`
	Confidence float64   `json:"confidence"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Record is the durable distilled conversation state. Sub-records are merged
// independently; Summary is always replaced wholesale on update.
type Record struct {
	Profile   Profile   `json:"profile"`
	Project   Project   `json:"project"`
	Technical Technical `json:"technical"`
	Summary   string    `json:"summary"`
}

// fresh is the two-part freshness gate: recency alone or confidence alone is
// insufficient.
func fresh(now, updatedAt time.Time, confidence float64) bool {
	return now.Sub(updatedAt) < FreshnessWindow && confidence >= MinConfidence
}

// Fresh reports whether the profile qualifies for prompt inclusion at now.
func (p Profile) Fresh(now time.Time) bool {
	return fresh(now, p.UpdatedAt, p.Confidence)
}

// Fresh reports whether the project qualifies for prompt inclusion at now.
func (p Project) Fresh(now time.Time) bool {
	return fresh(now, p.UpdatedAt, p.Confidence)
}

// Fresh reports whether the technical context qualifies for prompt inclusion
// at now.
func (t Technical) Fresh(now time.Time) bool {
	return fresh(now, t.UpdatedAt, t.Confidence)
}

// Empty returns a well-defined empty record: all confidences zero, all text
// empty. Returned whenever no persisted record exists or it cannot be read.
func Empty() *Record {
	return &Record{}
}

// ProfileUpdate is a partial update to the profile sub-record. Nil fields are
// left untouched.
type ProfileUpdate struct {
	Goal        *string
	Preferences *string
	Confidence  *float64
	UpdatedAt   *time.Time
}

// ProjectUpdate is a partial update to the project sub-record. Nil fields are
// left untouched.
type ProjectUpdate struct {
	Name       *string
	TechStack  *string
	Status     *string
	Confidence *float64
	UpdatedAt  *time.Time
}

// TechnicalUpdate is a partial update to the technical sub-record. Nil fields
// are left untouched.
type TechnicalUpdate struct {
	Context    *string
	Confidence *float64
	UpdatedAt  *time.Time
}

// Update is a partial record update. Nil sub-records are left untouched;
// updating one sub-record never blanks another. A non-nil Summary replaces
// the stored summary wholesale.
type Update struct {
	Profile   *ProfileUpdate
	Project   *ProjectUpdate
	Technical *TechnicalUpdate
	Summary   *string
}

// apply merges the update into the record field-by-field.
func (u Update) apply(rec *Record) {
	if u.Profile != nil {
		if u.Profile.Goal != nil {
			rec.Profile.Goal = *u.Profile.Goal
		}
		if u.Profile.Preferences != nil {
			rec.Profile.Preferences = *u.Profile.Preferences
		}
		if u.Profile.Confidence != nil {
			rec.Profile.Confidence = *u.Profile.Confidence
		}
		if u.Profile.UpdatedAt != nil {
			rec.Profile.UpdatedAt = *u.Profile.UpdatedAt
		}
	}

	if u.Project != nil {
		if u.Project.Name != nil {
			rec.Project.Name = *u.Project.Name
		}
		if u.Project.TechStack != nil {
			rec.Project.TechStack = *u.Project.TechStack
		}
		if u.Project.Status != nil {
			rec.Project.Status = *u.Project.Status
		}
		if u.Project.Confidence != nil {
			rec.Project.Confidence = *u.Project.Confidence
		}
		if u.Project.UpdatedAt != nil {
			rec.Project.UpdatedAt = *u.Project.UpdatedAt
		}
	}

	if u.Technical != nil {
		if u.Technical.Context != nil {
			rec.Technical.Context = *u.Technical.Context
		}
		if u.Technical.Confidence != nil {
			rec.Technical.Confidence = *u.Technical.Confidence
		}
		if u.Technical.UpdatedAt != nil {
			rec.Technical.UpdatedAt = *u.Technical.UpdatedAt
		}
	}

	if u.Summary != nil {
		rec.Summary = *u.Summary
	}
}
