package domain

import "time"

// ProjectStatus enumerates possible project states.
type ProjectStatus string

const (
	ProjectStatusCompleted  ProjectStatus = "COMPLETED"
	ProjectStatusInProgress ProjectStatus = "IN_PROGRESS"
	ProjectStatusPlanned    ProjectStatus = "PLANNED"
	ProjectStatusArchived   ProjectStatus = "ARCHIVED"
)

// TaskStatus enumerates possible timeline task states.
type TaskStatus string

const (
	TaskStatusCompleted  TaskStatus = "COMPLETED"
	TaskStatusInProgress TaskStatus = "IN_PROGRESS"
	TaskStatusPlanned    TaskStatus = "PLANNED"
)

// Photo is an image attached to a project.
type Photo struct {
	ID      string `json:"id"`
	Src     string `json:"src"`
	Alt     string `json:"alt"`
	Caption string `json:"caption,omitempty"`
}

// TimelineTask is a dated entry on the project timeline.
type TimelineTask struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	StartDate time.Time  `json:"startDate"`
	EndDate   time.Time  `json:"endDate"`
	Color     string     `json:"color"`
	Status    TaskStatus `json:"status"`
	Progress  int        `json:"progress"`
}

// Comment is a free-text note on a project.
type Comment struct {
	ID        string    `json:"id"`
	Author    string    `json:"author"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
	AvatarRef string    `json:"avatarRef,omitempty"`
}

// Project mirrors the persisted representation in the projects collection.
// Engineer is a display-name link and OwnerEmail an email link; neither is a
// foreign key into the accounts collection.
type Project struct {
	ID          int            `json:"id"`
	Name        string         `json:"name"`
	Engineer    string         `json:"engineer"`
	Client      string         `json:"client"`
	Status      ProjectStatus  `json:"status"`
	StartDate   time.Time      `json:"startDate"`
	EndDate     time.Time      `json:"endDate"`
	Description string         `json:"description,omitempty"`
	Location    string         `json:"location,omitempty"`
	Budget      float64        `json:"budget,omitempty"`
	Progress    int            `json:"progress"`
	Summary     string         `json:"summary,omitempty"`
	Photos      []Photo        `json:"photos"`
	Tasks       []TimelineTask `json:"tasks"`
	Comments    []Comment      `json:"comments"`
	OwnerEmail  string         `json:"ownerEmail,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
}

func (p Project) clone() Project {
	out := p
	out.Photos = append([]Photo(nil), p.Photos...)
	out.Tasks = append([]TimelineTask(nil), p.Tasks...)
	out.Comments = append([]Comment(nil), p.Comments...)
	return out
}
