package mailer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestBuildOTPEmail(t *testing.T) {
	e := BuildOTPEmail(OTPEmailData{SiteName: "ChurchHub", Code: "482913", ExpiresIn: "10 minutes"})
	if !strings.Contains(e.Subject, "ChurchHub") {
		t.Errorf("subject = %q", e.Subject)
	}
	for _, body := range []string{e.TextBody, e.HTMLBody} {
		if !strings.Contains(body, "482913") || !strings.Contains(body, "10 minutes") {
			t.Errorf("body missing code or expiry:\n%s", body)
		}
	}
}

func TestLogSender(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	s := NewLog(zap.New(core))
	if err := s.Send(context.Background(), Email{To: "a@example.com", Subject: "hi", TextBody: "code 1"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if logs.FilterField(zap.String("to", "a@example.com")).Len() != 1 {
		t.Error("expected one log entry for the recipient")
	}
}

func TestDeliveryError(t *testing.T) {
	base := errors.New("boom")
	err := error(&DeliveryError{Provider: "sendgrid", Code: "401", Err: base})
	var de *DeliveryError
	if !errors.As(err, &de) || de.Code != "401" {
		t.Fatal("errors.As failed")
	}
	if !errors.Is(err, base) {
		t.Error("DeliveryError should unwrap")
	}
}
