package stripe

import (
	"errors"
	"testing"
	"time"
)

const testSecret = "whsec_test"

func TestConstructEvent(t *testing.T) {
	payload := []byte(`{"id":"evt_1","type":"payment_intent.succeeded","data":{"object":{"id":"pi_1","status":"succeeded"}}}`)
	header := SignPayload(payload, testSecret, time.Now())

	event, err := ConstructEvent(payload, header, testSecret)
	if err != nil {
		t.Fatalf("ConstructEvent failed: %v", err)
	}
	if event.ID != "evt_1" {
		t.Errorf("Expected event id evt_1, got %s", event.ID)
	}
	if event.Type != EventPaymentSucceeded {
		t.Errorf("Expected type %s, got %s", EventPaymentSucceeded, event.Type)
	}
	if len(event.Data.Object) == 0 {
		t.Error("Expected raw object payload to be retained")
	}
}

// 密钥不匹配、载荷被改、时间戳过期都必须被拒绝
func TestVerifySignatureRejections(t *testing.T) {
	payload := []byte(`{"id":"evt_2"}`)
	header := SignPayload(payload, testSecret, time.Now())

	if err := VerifySignature(payload, header, "whsec_other", DefaultTolerance); !errors.Is(err, ErrSignatureMismatch) {
		t.Errorf("Expected ErrSignatureMismatch with wrong secret, got %v", err)
	}

	tampered := []byte(`{"id":"evt_2","amount":1}`)
	if err := VerifySignature(tampered, header, testSecret, DefaultTolerance); !errors.Is(err, ErrSignatureMismatch) {
		t.Errorf("Expected ErrSignatureMismatch with tampered payload, got %v", err)
	}

	stale := SignPayload(payload, testSecret, time.Now().Add(-time.Hour))
	if err := VerifySignature(payload, stale, testSecret, DefaultTolerance); !errors.Is(err, ErrTimestampExpired) {
		t.Errorf("Expected ErrTimestampExpired, got %v", err)
	}

	if err := VerifySignature(payload, "garbage", testSecret, DefaultTolerance); !errors.Is(err, ErrInvalidSignatureHeader) {
		t.Errorf("Expected ErrInvalidSignatureHeader, got %v", err)
	}
}

// 多个 v1 签名中任意一个匹配即通过（密钥轮换场景）
func TestVerifySignatureMultipleCandidates(t *testing.T) {
	payload := []byte(`{"id":"evt_3"}`)
	good := SignPayload(payload, testSecret, time.Now())
	bad := SignPayload(payload, "whsec_rotated_out", time.Now())

	// 把旧密钥的签名拼在前面
	combined := good + ",v1=" + bad[len(bad)-64:]
	if err := VerifySignature(payload, combined, testSecret, DefaultTolerance); err != nil {
		t.Errorf("Expected one matching signature to pass, got %v", err)
	}
}
