package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// SESAPI is the subset of the SES client used here.
type SESAPI interface {
	SendEmail(ctx context.Context, in *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESConfig configures SESNotifier.
type SESConfig struct {
	Region  string
	From    string
	Subject string
	AppName string
}

// SESNotifier emails reset tokens through Amazon SES.
type SESNotifier struct {
	client SESAPI
	cfg    SESConfig
}

// NewSESNotifier loads AWS credentials from the default chain.
func NewSESNotifier(ctx context.Context, cfg SESConfig) (*SESNotifier, error) {
	if cfg.Region == "" {
		return nil, errors.New("ses region must be set")
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewSESNotifierWithClient(ses.NewFromConfig(awsCfg), cfg)
}

// NewSESNotifierWithClient uses an existing client.
func NewSESNotifierWithClient(client SESAPI, cfg SESConfig) (*SESNotifier, error) {
	if client == nil {
		return nil, errors.New("ses client must be set")
	}
	if cfg.From == "" {
		return nil, errors.New("ses sender address must be set")
	}
	if cfg.AppName == "" {
		cfg.AppName = "Studentopia"
	}
	if cfg.Subject == "" {
		cfg.Subject = "Reset your " + cfg.AppName + " password"
	}
	return &SESNotifier{client: client, cfg: cfg}, nil
}

func (n *SESNotifier) SendPasswordReset(ctx context.Context, msg Message) error {
	if msg.Email == "" {
		return errors.New("reset message has no recipient")
	}

	body := resetBody(n.cfg.AppName, msg)
	_, err := n.client.SendEmail(ctx, &ses.SendEmailInput{
		Source: aws.String(n.cfg.From),
		Destination: &types.Destination{
			ToAddresses: []string{msg.Email},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Charset: aws.String("UTF-8"),
				Data:    aws.String(n.cfg.Subject),
			},
			Body: &types.Body{
				Text: &types.Content{
					Charset: aws.String("UTF-8"),
					Data:    aws.String(body),
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("ses send: %w", err)
	}
	return nil
}

func resetBody(app string, msg Message) string {
	greeting := "Hi"
	if msg.Username != "" {
		greeting += " " + msg.Username
	}
	minutes := int(time.Until(msg.ExpiresAt).Round(time.Minute) / time.Minute)
	if minutes < 1 {
		minutes = 1
	}
	return fmt.Sprintf(
		"%s,\n\nSomeone asked to reset the password of your %s account.\n"+
			"Enter this code in the app to choose a new password:\n\n    %s\n\n"+
			"The code expires in %d minutes. If you did not ask for this, you can ignore this email.\n",
		greeting, app, msg.Token, minutes,
	)
}
