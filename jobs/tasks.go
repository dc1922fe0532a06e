package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskInstructorStatsRefresh recomputes review counters for instructors.
	TaskInstructorStatsRefresh = "instructor:stats:refresh"
)

// InstructorStatsPayload names the instructor to refresh. An empty id refreshes
// every instructor.
type InstructorStatsPayload struct {
	InstructorID string `json:"instructor_id,omitempty"`
}

// NewInstructorStatsTask constructs an Asynq task.
func NewInstructorStatsTask(instructorID string) (*asynq.Task, error) {
	data, err := json.Marshal(InstructorStatsPayload{InstructorID: instructorID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskInstructorStatsRefresh, data), nil
}
