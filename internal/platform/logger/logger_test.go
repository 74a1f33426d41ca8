package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestRedactorMasksPersonFields(t *testing.T) {
	r := newRedactor(true, "")
	out := r.kvs([]interface{}{
		"first_name", "Ada",
		"scan_id", 7,
		"payload", map[string]interface{}{"lastName": "Lovelace", "city": "London"},
		"dangling",
	})
	if len(out) != 7 {
		t.Fatalf("len: want=7 got=%d", len(out))
	}
	if out[1] != "[REDACTED]" {
		t.Fatalf("first_name: want redacted got=%v", out[1])
	}
	if out[3] != 7 {
		t.Fatalf("scan_id: want=7 got=%v", out[3])
	}
	payload, ok := out[5].(map[string]interface{})
	if !ok {
		t.Fatalf("payload: want map got=%T", out[5])
	}
	if payload["lastName"] != "[REDACTED]" {
		t.Fatalf("payload.lastName: want redacted got=%v", payload["lastName"])
	}
	if payload["city"] != "London" {
		t.Fatalf("payload.city: want=London got=%v", payload["city"])
	}
	if out[6] != "dangling" {
		t.Fatalf("dangling key: got=%v", out[6])
	}
}

func TestRedactorDisabledPassesThrough(t *testing.T) {
	in := []interface{}{"first_name", "Ada"}
	out := newRedactor(false, "").kvs(in)
	if out[1] != "Ada" {
		t.Fatalf("disabled redactor changed value: %v", out[1])
	}
}

func TestRedactorHashIsStableAndSalted(t *testing.T) {
	r := newRedactor(true, "")
	a, b := r.hash("10.0.0.1"), r.hash("10.0.0.1")
	if a != b || len(a) != len("hash:")+12 {
		t.Fatalf("hash: a=%q b=%q", a, b)
	}
	if r.hash("") != "" {
		t.Fatalf("hash(empty) should be empty")
	}
	if salted := newRedactor(true, "pepper").hash("10.0.0.1"); salted == a {
		t.Fatalf("salt did not change the digest")
	}
}

func TestWithKeepsRedaction(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := &Logger{SugaredLogger: zap.New(core).Sugar(), redact: newRedactor(true, "")}

	l.With("scan_id", 3).Info("Scan created", "last_name", "Lovelace", "client_ip", "10.0.0.1")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("entries: want=1 got=%d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["last_name"] != "[REDACTED]" {
		t.Fatalf("last_name: got=%v", fields["last_name"])
	}
	if fields["scan_id"] != int64(3) {
		t.Fatalf("scan_id: got=%v (%T)", fields["scan_id"], fields["scan_id"])
	}
	if ip, _ := fields["client_ip"].(string); len(ip) != len("hash:")+12 {
		t.Fatalf("client_ip: want hashed got=%v", fields["client_ip"])
	}
}

func TestNewRejectsBadLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "loud")
	if _, err := New("test"); err == nil {
		t.Fatal("expected an error for an unknown LOG_LEVEL")
	}
}
