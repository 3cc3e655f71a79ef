package push

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// fcmBatch is the multicast limit of the FCM API.
const fcmBatch = 500

// FCM sends through Firebase Cloud Messaging.
type FCM struct {
	client *messaging.Client
}

// NewFCM builds a client from a service-account credentials file.
func NewFCM(ctx context.Context, credentialsFile string) (*FCM, error) {
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase messaging: %w", err)
	}
	return &FCM{client: client}, nil
}

func (f *FCM) Send(ctx context.Context, tokens []string, n Notification) (Result, error) {
	var res Result
	for start := 0; start < len(tokens); start += fcmBatch {
		end := min(start+fcmBatch, len(tokens))
		batch := tokens[start:end]
		resp, err := f.client.SendEachForMulticast(ctx, &messaging.MulticastMessage{
			Tokens:       batch,
			Notification: &messaging.Notification{Title: n.Title, Body: n.Body},
			Data:         n.Data,
		})
		if err != nil {
			return res, err
		}
		res.Success += resp.SuccessCount
		res.Failure += resp.FailureCount
		for i, r := range resp.Responses {
			if !r.Success && messaging.IsUnregistered(r.Error) {
				res.Unregistered = append(res.Unregistered, batch[i])
			}
		}
	}
	return res, nil
}
