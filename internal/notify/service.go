package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/smtp"
	"time"

	"educore/internal/logger"
	"educore/internal/metrics"
	"educore/internal/wallet"

	"github.com/redis/go-redis/v9"
)

const (
	queueKey       = "notifications"
	failedQueueKey = "notifications:failed"
	maxTries       = 3
)

type Job struct {
	To      string    `json:"to"`
	Name    string    `json:"name"`
	Type    string    `json:"type"`
	Subject string    `json:"subject"`
	Body    string    `json:"body"`
	Tries   int       `json:"tries"`
	Created time.Time `json:"created"`
}

type Service struct {
	redis    *redis.Client
	from     string
	fromName string
	smtpHost string
	smtpPort string
	smtpUser string
	smtpPass string
}

func New(fromEmail, fromName, smtpHost, smtpPort, smtpUser, smtpPass, redisAddr string) *Service {
	return &Service{
		redis: redis.NewClient(&redis.Options{
			Addr: redisAddr,
		}),
		from:     fromEmail,
		fromName: fromName,
		smtpHost: smtpHost,
		smtpPort: smtpPort,
		smtpUser: smtpUser,
		smtpPass: smtpPass,
	}
}

func (s *Service) enqueue(ctx context.Context, job Job) error {
	job.Created = time.Now()

	data, err := json.Marshal(job)
	if err != nil {
		logger.Errorf("Failed to marshal notification job: %v", err)
		return err
	}

	if err := s.redis.LPush(ctx, queueKey, string(data)).Err(); err != nil {
		logger.Errorf("Failed to queue notification to %s: %v", job.To, err)
		metrics.RecordNotification(job.Type, "queue_failed")
		return err
	}

	logger.Infof("Notification queued: %s to %s", job.Subject, job.To)
	return nil
}

func (s *Service) Start(ctx context.Context) {
	logger.Info("Notification worker started")

	for {
		select {
		case <-ctx.Done():
			logger.Info("Notification worker stopped")
			return
		default:
			s.processNext(ctx)
		}
	}
}

func (s *Service) processNext(ctx context.Context) {
	result, err := s.redis.BRPop(ctx, 2*time.Second, queueKey).Result()
	if err != nil {
		return
	}

	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		logger.Errorf("Bad notification data: %v", err)
		return
	}

	job.Tries++
	if err := s.sendNow(job); err != nil {
		logger.Errorf("Failed to send notification to %s: %v", job.To, err)

		if job.Tries < maxTries {
			time.Sleep(5 * time.Second)
			data, _ := json.Marshal(job)
			s.redis.LPush(context.Background(), queueKey, data)
		} else {
			logger.Errorf("Notification to %s failed after %d attempts", job.To, maxTries)
			metrics.RecordNotification(job.Type, "failed")
			s.saveFailed(job, err)
		}
		return
	}

	metrics.RecordNotification(job.Type, "sent")
	logger.Infof("Notification sent to %s", job.To)
}

func (s *Service) sendNow(job Job) error {
	message := fmt.Sprintf("From: %s <%s>\r\n", s.fromName, s.from)
	message += fmt.Sprintf("To: %s\r\n", job.To)
	message += fmt.Sprintf("Subject: %s\r\n", job.Subject)
	message += "\r\n" + job.Body

	var auth smtp.Auth
	if s.smtpUser != "" && s.smtpPass != "" {
		auth = smtp.PlainAuth("", s.smtpUser, s.smtpPass, s.smtpHost)
	}

	addr := s.smtpHost + ":" + s.smtpPort
	return smtp.SendMail(addr, auth, s.from, []string{job.To}, []byte(message))
}

func (s *Service) saveFailed(job Job, err error) {
	failed := map[string]interface{}{
		"job":   job,
		"error": err.Error(),
		"time":  time.Now(),
	}
	data, _ := json.Marshal(failed)
	s.redis.LPush(context.Background(), failedQueueKey, data)
}

func (s *Service) QueueLength(ctx context.Context) int64 {
	length, _ := s.redis.LLen(ctx, queueKey).Result()
	metrics.NotificationQueueLength.Set(float64(length))
	return length
}

func (s *Service) Close() error {
	return s.redis.Close()
}

func (s *Service) SendFundingReceipt(ctx context.Context, to, name string, amountKobo, balanceKobo int64, reference string) error {
	body := fmt.Sprintf(`Hi %s,

Your wallet has been funded.

Amount: %s
New balance: %s
Reference: %s

- EduCore`, name, wallet.FormatKobo(amountKobo), wallet.FormatKobo(balanceKobo), reference)

	return s.enqueue(ctx, Job{
		To:      to,
		Name:    name,
		Type:    "funding_receipt",
		Subject: "Wallet Funded",
		Body:    body,
	})
}

func (s *Service) SendPaymentReceipt(ctx context.Context, to, name string, amountKobo, balanceKobo int64, description string) error {
	body := fmt.Sprintf(`Hi %s,

Your wallet payment was successful.

Paid: %s
For: %s
Remaining balance: %s

- EduCore`, name, wallet.FormatKobo(amountKobo), description, wallet.FormatKobo(balanceKobo))

	return s.enqueue(ctx, Job{
		To:      to,
		Name:    name,
		Type:    "payment_receipt",
		Subject: "Payment Receipt",
		Body:    body,
	})
}

func (s *Service) SendTransferNotice(ctx context.Context, to, name string, amountKobo int64, direction, reference string) error {
	verb := "received"
	if direction == wallet.DirectionOut {
		verb = "sent"
	}

	body := fmt.Sprintf(`Hi %s,

You %s a wallet transfer of %s.

Reference: %s

- EduCore`, name, verb, wallet.FormatKobo(amountKobo), reference)

	return s.enqueue(ctx, Job{
		To:      to,
		Name:    name,
		Type:    "transfer_notice",
		Subject: "Wallet Transfer",
		Body:    body,
	})
}
