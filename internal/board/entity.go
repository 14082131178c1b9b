package board

import (
	"slices"
	"strings"
	"time"

	"github.com/kazz187/taskboard/internal/workflow"
)

type Board struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	OwnerEmail string    `json:"ownerEmail"`
	Country    string    `json:"country"`
	CreatedAt  time.Time `json:"createdAt"`
	Tasks      []*Task   `json:"tasks"`
}

// SortedTasks returns the tasks ordered by priority, lowest first, then by id.
func (b *Board) SortedTasks() []*Task {
	out := slices.Clone(b.Tasks)
	slices.SortStableFunc(out, func(x, y *Task) int {
		if x.Priority != y.Priority {
			return x.Priority - y.Priority
		}
		return strings.Compare(x.ID, y.ID)
	})
	return out
}

func (b *Board) Clone() *Board {
	out := *b
	out.Tasks = make([]*Task, len(b.Tasks))
	for i, t := range b.Tasks {
		out.Tasks[i] = t.Clone()
	}
	return &out
}

type Task struct {
	ID               string           `json:"clientTaskId"`
	Title            string           `json:"title"`
	Status           workflow.Status  `json:"status"`
	Priority         int              `json:"priority"`
	Difficulty       string           `json:"difficulty"`
	RequiresDocument bool             `json:"requiresDocument"`
	Location         *string          `json:"location"`
	Deadline         *time.Time       `json:"deadline"`
	Assignee         *string          `json:"assignee"`
	Points           int              `json:"points"`
	Comments         []Comment        `json:"comments"`
	Files            []FileAttachment `json:"files"`
	PageType         string           `json:"pageType"`

	// DetailsFetched is never sent by the server. It flips once a response
	// carrying comments and files has been merged.
	DetailsFetched bool `json:"detailsFetched"`
}

// EffectiveStatus is the status shown to a user on the given tier.
func (t *Task) EffectiveStatus(tier workflow.Tier) workflow.Status {
	return workflow.RemapForTier(t.Status, tier)
}

func (t *Task) File(id string) (FileAttachment, bool) {
	for _, f := range t.Files {
		if f.ID == id {
			return f, true
		}
	}
	return FileAttachment{}, false
}

func (t *Task) Clone() *Task {
	out := *t
	out.Location = clonePtr(t.Location)
	out.Deadline = clonePtr(t.Deadline)
	out.Assignee = clonePtr(t.Assignee)
	out.Comments = slices.Clone(t.Comments)
	for i := range out.Comments {
		out.Comments[i].Author = clonePtr(t.Comments[i].Author)
	}
	out.Files = slices.Clone(t.Files)
	return &out
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Comment is immutable once posted. A nil Author is the support team.
type Comment struct {
	ID        string    `json:"id"`
	Author    *string   `json:"author"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

type FileStatus string

const (
	FileStatusPending  FileStatus = "pending"
	FileStatusApproved FileStatus = "approved"
	FileStatusRejected FileStatus = "rejected"
)

type FileAttachment struct {
	ID        string     `json:"id"`
	FileName  string     `json:"fileName"`
	Link      string     `json:"link"`
	Status    FileStatus `json:"status"`
	CreatedAt time.Time  `json:"createdAt"`
}

type User struct {
	ID     string        `json:"id"`
	Email  string        `json:"email"`
	Tier   workflow.Tier `json:"tier"`
	Points int           `json:"points"`
}

// Feature is one answer of the board creation form.
type Feature struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

const (
	FeatureCitizenship        = "citizenship"
	FeatureDestinationCountry = "destination_country"
)

var requiredFeatures = []string{FeatureCitizenship, FeatureDestinationCountry}

// ValidateFeatures reports the first required feature that is missing or blank.
func ValidateFeatures(features []Feature) error {
	for _, name := range requiredFeatures {
		found := false
		for _, f := range features {
			if f.Name == name && strings.TrimSpace(f.Value) != "" {
				found = true
				break
			}
		}
		if !found {
			return errMissingFeature(name)
		}
	}
	return nil
}
