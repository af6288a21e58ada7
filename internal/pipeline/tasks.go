// Package pipeline runs the async call processing stages: transcription and
// scoring, plus the sweep that fails calls stuck past the deadline.
package pipeline

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskCallTranscribe = "calls.transcribe"

const TaskCallScore = "calls.score"

type CallTaskPayload struct {
	CallID string `json:"callId"`
}

func NewCallTranscribeTask(payload CallTaskPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCallTranscribe, data), nil
}

func NewCallScoreTask(payload CallTaskPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCallScore, data), nil
}

func ParseCallTaskPayload(task *asynq.Task) (CallTaskPayload, error) {
	var payload CallTaskPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return CallTaskPayload{}, err
	}
	return payload, nil
}
