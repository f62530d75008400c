package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeSendEmail is the task type for sending notification emails.
	TaskTypeSendEmail = "mail:send"
	// TaskTypeIntegritySweep is the task type for scheduled chain verification.
	TaskTypeIntegritySweep = "ledger:integrity_sweep"
)

// SendEmailPayload describes the information required to send an email.
// Ref, when set, becomes the task id so one alert enqueues one delivery.
type SendEmailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
	Ref     string `json:"ref"`
}

// NewSendEmailTask constructs an Asynq task.
func NewSendEmailTask(payload SendEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	var opts []asynq.Option
	if payload.Ref != "" {
		opts = append(opts, asynq.TaskID(payload.Ref))
	}
	return asynq.NewTask(TaskTypeSendEmail, data, opts...), nil
}

// NewIntegritySweepTask constructs the scheduled verification task.
func NewIntegritySweepTask() *asynq.Task {
	return asynq.NewTask(TaskTypeIntegritySweep, nil)
}
