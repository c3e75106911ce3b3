package webhook

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

const testAuthToken = "test-auth-token"

func signedRequest(t *testing.T, target string, form url.Values) *http.Request {
	t.Helper()
	r := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	r.Header.Set("X-Twilio-Signature", computeSignature(buildSignaturePayload(target, form), testAuthToken))
	return r
}

func TestValidateTwilioSignature(t *testing.T) {
	form := url.Values{
		"MessageSid": {"SM123"},
		"From":       {"whatsapp:+905551112233"},
		"Body":       {"DURUM"},
	}
	target := "https://clinic.example.com/webhooks/twilio/whatsapp"

	r := signedRequest(t, target, form)
	if !ValidateTwilioSignature(r, testAuthToken, target) {
		t.Fatal("valid signature rejected")
	}

	r = signedRequest(t, target, form)
	if ValidateTwilioSignature(r, "wrong-token", target) {
		t.Fatal("signature accepted with wrong auth token")
	}

	r = httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if ValidateTwilioSignature(r, testAuthToken, target) {
		t.Fatal("missing signature header accepted")
	}
}

func TestSignaturePayloadSortsParams(t *testing.T) {
	form := url.Values{"b": {"2"}, "a": {"1"}, "c": {"3"}}
	got := buildSignaturePayload("https://x.example", form)
	if got != "https://x.examplea1b2c3" {
		t.Fatalf("payload = %q", got)
	}
}

func TestParseInbound(t *testing.T) {
	form := url.Values{
		"MessageSid": {"SM123"},
		"AccountSid": {"AC456"},
		"From":       {"whatsapp:+905551112233"},
		"To":         {"whatsapp:+14155238886"},
		"Body":       {"YAPILDI EKG"},
	}
	r := httptest.NewRequest(http.MethodPost, "/webhooks/twilio/whatsapp", strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	msg, err := ParseInbound(r)
	if err != nil {
		t.Fatalf("parse inbound: %v", err)
	}
	if msg.MessageSid != "SM123" || msg.From != "whatsapp:+905551112233" || msg.Body != "YAPILDI EKG" {
		t.Fatalf("unexpected parse result: %+v", msg)
	}
}

func TestBuildAbsoluteURLHonorsForwardingHeaders(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/webhooks/twilio/whatsapp", nil)
	r.Host = "internal:8080"
	r.Header.Set("X-Forwarded-Proto", "https")
	r.Header.Set("X-Forwarded-Host", "clinic.example.com")

	if got := BuildAbsoluteURL(r); got != "https://clinic.example.com/webhooks/twilio/whatsapp" {
		t.Fatalf("url = %q", got)
	}
}
