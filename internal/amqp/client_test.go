package amqp

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestExponentialBackoff(t *testing.T) {
	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 16 * time.Second},
		{5, 30 * time.Second},  // capped at 30s
		{10, 30 * time.Second}, // capped at 30s
		{15, 30 * time.Second}, // capped at 30s
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("attempt_%d", tt.attempt), func(t *testing.T) {
			result := exponentialBackoff(tt.attempt)
			if result != tt.expected {
				t.Errorf("exponentialBackoff(%d) = %v, want %v", tt.attempt, result, tt.expected)
			}
		})
	}
}

func TestIsConnectionError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "nil error",
			err:      nil,
			expected: false,
		},
		{
			name:     "connection error",
			err:      errors.New("connection refused"),
			expected: true,
		},
		{
			name:     "closed connection error",
			err:      errors.New("connection closed"),
			expected: true,
		},
		{
			name:     "EOF error",
			err:      errors.New("unexpected EOF"),
			expected: true,
		},
		{
			name:     "broken pipe error",
			err:      errors.New("broken pipe"),
			expected: true,
		},
		{
			name:     "closed network connection error",
			err:      errors.New("use of closed network connection"),
			expected: true,
		},
		{
			name:     "other error",
			err:      errors.New("some other error"),
			expected: false,
		},
		{
			name:     "validation error",
			err:      errors.New("invalid input"),
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := isConnectionError(tt.err)
			if result != tt.expected {
				t.Errorf("isConnectionError(%v) = %v, want %v", tt.err, result, tt.expected)
			}
		})
	}
}

func TestNewClassificationRunMessage(t *testing.T) {
	msg := NewClassificationRunMessage(120, 95)

	if msg.Total != 120 {
		t.Errorf("NewClassificationRunMessage() Total = %v, want 120", msg.Total)
	}
	if msg.Labeled != 95 {
		t.Errorf("NewClassificationRunMessage() Labeled = %v, want 95", msg.Labeled)
	}
	if msg.Unlabeled != 25 {
		t.Errorf("NewClassificationRunMessage() Unlabeled = %v, want 25", msg.Unlabeled)
	}
	if msg.RanAt.IsZero() {
		t.Error("NewClassificationRunMessage() RanAt should not be zero")
	}
	if time.Since(msg.RanAt) > time.Second {
		t.Error("NewClassificationRunMessage() RanAt should be recent")
	}
}

func TestClassificationRunMessage_JSON(t *testing.T) {
	ranAt := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	msg := &ClassificationRunMessage{
		RanAt:     ranAt,
		Total:     50,
		Labeled:   40,
		Unlabeled: 10,
	}

	jsonBytes, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}

	parsedMsg, err := ClassificationRunMessageFromJSON(jsonBytes)
	if err != nil {
		t.Fatalf("ClassificationRunMessageFromJSON() error = %v", err)
	}

	if parsedMsg.Total != msg.Total {
		t.Errorf("Parsed Total = %v, want %v", parsedMsg.Total, msg.Total)
	}
	if parsedMsg.Labeled != msg.Labeled {
		t.Errorf("Parsed Labeled = %v, want %v", parsedMsg.Labeled, msg.Labeled)
	}
	if parsedMsg.Unlabeled != msg.Unlabeled {
		t.Errorf("Parsed Unlabeled = %v, want %v", parsedMsg.Unlabeled, msg.Unlabeled)
	}
	if !parsedMsg.RanAt.Equal(msg.RanAt) {
		t.Errorf("Parsed RanAt = %v, want %v", parsedMsg.RanAt, msg.RanAt)
	}
}

func TestClassificationRunMessage_InvalidJSON(t *testing.T) {
	invalidJSON := []byte(`{"total": "not_a_number", "labeled": 1}`)

	_, err := ClassificationRunMessageFromJSON(invalidJSON)
	if err == nil {
		t.Error("ClassificationRunMessageFromJSON() should fail with invalid JSON")
	}
}
