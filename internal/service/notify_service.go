package service

import (
	"context"
	"fmt"
	"log"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
)

// EmailNotifier delivers engine notifications via Amazon SES
type EmailNotifier struct {
	client     *sesv2.Client
	fromEmail  string
	fromName   string
	appBaseURL string
	enabled    bool
}

// NewEmailNotifier creates an SES-backed notifier. If fromEmail is empty the
// notifier is disabled and every Notify is a logged no-op.
func NewEmailNotifier(awsRegion, fromEmail, fromName, appBaseURL string) (*EmailNotifier, error) {
	if fromEmail == "" {
		log.Println("Email notifier disabled: SES_FROM_EMAIL not configured")
		return &EmailNotifier{enabled: false}, nil
	}

	cfg, err := awsconfig.LoadDefaultConfig(context.TODO(),
		awsconfig.WithRegion(awsRegion),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	log.Printf("Email notifier enabled: from=%s, region=%s", fromEmail, awsRegion)

	return &EmailNotifier{
		client:     sesv2.NewFromConfig(cfg),
		fromEmail:  fromEmail,
		fromName:   fromName,
		appBaseURL: appBaseURL,
		enabled:    true,
	}, nil
}

// IsEnabled returns whether the notifier can deliver email
func (s *EmailNotifier) IsEnabled() bool {
	return s.enabled
}

// Notify delivers a notification by email. Messages without a resolved
// address are logged and dropped; the engine never blocks on delivery.
func (s *EmailNotifier) Notify(ctx context.Context, n Notification) error {
	if !s.enabled || n.Email == "" {
		log.Printf("Skipping email notification: user=%d kind=%s subject=%s", n.UserID, n.Kind, n.Subject)
		return nil
	}

	htmlBody := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
	<div style="max-width: 600px; margin: 0 auto; padding: 20px;">
		<div style="background-color: #4a90e2; color: white; padding: 20px; text-align: center; border-radius: 5px 5px 0 0;">
			<h1>%s</h1>
		</div>
		<div style="background-color: #f9f9f9; padding: 30px; border-radius: 0 0 5px 5px;">
			<p>%s</p>
			<p style="text-align: center;">
				<a href="%s" style="display: inline-block; padding: 12px 30px; background-color: #4a90e2; color: white; text-decoration: none; border-radius: 5px;">Open ClassQuest</a>
			</p>
		</div>
		<div style="text-align: center; margin-top: 20px; font-size: 12px; color: #666;">
			<p>This is an automated email from ClassQuest. Please do not reply.</p>
		</div>
	</div>
</body>
</html>
`, n.Subject, n.Message, s.appBaseURL)

	textBody := fmt.Sprintf("%s\n\n%s\n\n---\nThis is an automated email from ClassQuest. Please do not reply.\n", n.Subject, n.Message)

	fromAddress := s.fromEmail
	if s.fromName != "" {
		fromAddress = fmt.Sprintf("%s <%s>", s.fromName, s.fromEmail)
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{n.Email},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{
					Data:    aws.String(n.Subject),
					Charset: aws.String("UTF-8"),
				},
				Body: &types.Body{
					Html: &types.Content{
						Data:    aws.String(htmlBody),
						Charset: aws.String("UTF-8"),
					},
					Text: &types.Content{
						Data:    aws.String(textBody),
						Charset: aws.String("UTF-8"),
					},
				},
			},
		},
	}

	if _, err := s.client.SendEmail(ctx, input); err != nil {
		return fmt.Errorf("failed to send notification email to %s: %w", n.Email, err)
	}

	log.Printf("Notification email sent: user=%d kind=%s", n.UserID, n.Kind)
	return nil
}
