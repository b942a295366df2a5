package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskDealTaskReminder = "activities.task.reminder"

const TaskChatbotFlowExecution = "chatbot.flow.execute"

type TaskReminderPayload struct {
	TaskID         string `json:"taskId"`
	OrganizationID string `json:"organizationId"`
}

// ChatbotExecutionPayload is consumed by the chatbot runtime from the
// chatbot queue.
type ChatbotExecutionPayload struct {
	ExecutionID    string `json:"executionId"`
	FlowID         string `json:"flowId"`
	OrganizationID string `json:"organizationId"`
	DealID         string `json:"dealId"`
	ContactID      string `json:"contactId"`
}

func NewTaskReminderTask(payload TaskReminderPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskDealTaskReminder, data), nil
}

func ParseTaskReminderPayload(task *asynq.Task) (TaskReminderPayload, error) {
	var payload TaskReminderPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return TaskReminderPayload{}, err
	}
	return payload, nil
}

func NewChatbotExecutionTask(payload ChatbotExecutionPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskChatbotFlowExecution, data), nil
}

// ParseChatbotExecutionPayload decodes a task taken off the chatbot queue.
func ParseChatbotExecutionPayload(task *asynq.Task) (ChatbotExecutionPayload, error) {
	var payload ChatbotExecutionPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return ChatbotExecutionPayload{}, err
	}
	return payload, nil
}
