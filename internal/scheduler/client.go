package scheduler

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"time"

	"funnel_backend/platform/config"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

type Client struct {
	client       *asynq.Client
	queue        string
	chatbotQueue string
}

func NewClient(cfg config.SchedulerConfig) (*Client, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	return &Client{
		client:       asynq.NewClient(opt),
		queue:        queueName(cfg.GetAsynqQueueName(), "default"),
		chatbotQueue: queueName(cfg.GetChatbotQueueName(), "chatbot"),
	}, nil
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// ScheduleTaskReminder enqueues a reminder that fires at runAt. The task id
// is derived from the deal task so rescheduling never duplicates it.
func (c *Client) ScheduleTaskReminder(ctx context.Context, taskID, organizationID uuid.UUID, runAt time.Time) error {
	if c == nil || c.client == nil {
		return nil
	}

	task, err := NewTaskReminderTask(TaskReminderPayload{
		TaskID:         taskID.String(),
		OrganizationID: organizationID.String(),
	})
	if err != nil {
		return err
	}

	_, err = c.client.EnqueueContext(ctx, task,
		asynq.ProcessAt(runAt),
		asynq.Queue(c.queue),
		asynq.TaskID("task-reminder:"+taskID.String()),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	return err
}

// EnqueueChatbotExecution hands a pending execution to the chatbot runtime.
// Enqueueing the same execution twice is a no-op.
func (c *Client) EnqueueChatbotExecution(ctx context.Context, payload ChatbotExecutionPayload) error {
	if c == nil || c.client == nil {
		return nil
	}

	task, err := NewChatbotExecutionTask(payload)
	if err != nil {
		return err
	}

	_, err = c.client.EnqueueContext(ctx, task,
		asynq.Queue(c.chatbotQueue),
		asynq.MaxRetry(5),
		asynq.TaskID("chatbot-execution:"+payload.ExecutionID),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	return err
}

func queueName(configured, fallback string) string {
	if configured == "" {
		return fallback
	}
	return configured
}

func redisClientOpt(redisURL string, tlsInsecure bool) (asynq.RedisClientOpt, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}

	var tlsConfig *tls.Config
	if opt.TLSConfig != nil {
		clone := opt.TLSConfig.Clone()
		if tlsInsecure {
			clone.InsecureSkipVerify = true
		}
		tlsConfig = clone
	} else if tlsInsecure {
		tlsConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: tlsConfig,
	}, nil
}
