// Package notification pushes out-of-band user notifications. Delivery is
// best-effort: callers log failures and move on.
package notification

import (
	"context"
	"encoding/json"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"proofing/pkg/requestcontext"
)

// Notifier delivers identity-lifecycle notifications to a user's other
// devices and linked services.
type Notifier interface {
	// ReproofCompleted tells the user's connected parties that a new
	// identity verification replaced a previously active one.
	ReproofCompleted(ctx context.Context, userID string) error
	// OTPCode texts a one-time confirmation code to a phone number.
	OTPCode(ctx context.Context, phone, code string) error
}

// SNSNotifier publishes notifications to an AWS SNS topic.
type SNSNotifier struct {
	client   *sns.Client
	topicARN string
}

func NewSNS(region, topicARN string) (*SNSNotifier, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(region),
	)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}
	return &SNSNotifier{client: sns.NewFromConfig(awsCfg), topicARN: topicARN}, nil
}

func (n *SNSNotifier) ReproofCompleted(ctx context.Context, userID string) error {
	payload, err := json.Marshal(map[string]any{
		"event":   "reproof_completed",
		"user_id": userID,
		"at":      requestcontext.Now(ctx),
	})
	if err != nil {
		return fmt.Errorf("encoding notification: %w", err)
	}
	message := string(payload)
	_, err = n.client.Publish(ctx, &sns.PublishInput{
		TopicArn: &n.topicARN,
		Message:  &message,
	})
	if err != nil {
		return fmt.Errorf("publishing reproof notification: %w", err)
	}
	return nil
}

func (n *SNSNotifier) OTPCode(ctx context.Context, phone, code string) error {
	message := fmt.Sprintf("Your verification code is %s. It expires with your session.", code)
	_, err := n.client.Publish(ctx, &sns.PublishInput{
		PhoneNumber: &phone,
		Message:     &message,
	})
	if err != nil {
		return fmt.Errorf("publishing otp code: %w", err)
	}
	return nil
}

// Noop swallows notifications, for development and tests.
type Noop struct{}

func (Noop) ReproofCompleted(context.Context, string) error { return nil }

func (Noop) OTPCode(context.Context, string, string) error { return nil }
