package models

// QueueActionProcess requests verification processing for a job.
const QueueActionProcess = "process"

// JobQueueMessage is the body of a work-queue message.
type JobQueueMessage struct {
	JobID  string `json:"document_id"`
	Action string `json:"action"`
}
