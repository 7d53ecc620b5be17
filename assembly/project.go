package assembly

import (
	"time"

	"github.com/aeobrien/colloquy/storage"
)

// Project is the overview of the project a session belongs to.
type Project struct {
	ID          string
	Name        string
	Description string
	Status      string
	CreatedAt   time.Time
}

// ProcessProfile captures how this user likes to run projects.
type ProcessProfile struct {
	PlanningDepth string
	WorkingStyle  string
	Notes         string
}

// Document is a free-text artifact attached to the project. Bodies can be
// arbitrarily large; the assembler truncates them to fit.
type Document struct {
	Title string
	Type  string
	Body  string
}

// Phase is one level of project structure.
type Phase struct {
	Name  string
	Tasks []Task
}

// Task is a unit of work inside a phase.
type Task struct {
	ID       string
	Title    string
	Status   string
	Estimate string
}

// DeferredTask records a task the user keeps pushing off.
type DeferredTask struct {
	TaskID     string
	Title      string
	Count      int
	LastReason string
}

// EstimateSample is one completed task with its estimated and actual effort,
// used to calibrate the user's estimates.
type EstimateSample struct {
	Task           string
	EstimatedHours float64
	ActualHours    float64
}

// PortfolioProject is a one-line view of another project, for review
// sessions that place this project among the rest.
type PortfolioProject struct {
	Name       string
	Status     string
	LastActive time.Time
	OpenTasks  int
}

// ProjectData aggregates everything the assembler may render into situation
// context. Callers populate what they have; empty fields render nothing.
type ProjectData struct {
	Project       Project
	Process       ProcessProfile
	Documents     []Document
	Structure     []Phase
	DeferredTasks []DeferredTask
	Sessions      []storage.Session
	Summaries     []storage.Summary
	Calibration   []EstimateSample
	Portfolio     []PortfolioProject

	// Now anchors time-relative rendering (gaps, returns). Zero means
	// time.Now at assembly time.
	Now time.Time
}

func (d ProjectData) now() time.Time {
	if d.Now.IsZero() {
		return time.Now()
	}
	return d.Now
}
