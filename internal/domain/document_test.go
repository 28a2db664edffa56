package domain

import "testing"

func TestStatus_CanTransition_PipelineOrder(t *testing.T) {
	sequence := []Status{
		StatusQueued, StatusParsing, StatusChunking,
		StatusEmbedding, StatusStoring, StatusReady,
	}

	for i := 0; i < len(sequence)-1; i++ {
		if !sequence[i].CanTransition(sequence[i+1]) {
			t.Errorf("expected %s -> %s to be allowed", sequence[i], sequence[i+1])
		}
	}

	// backward moves within a run are not
	for i := 1; i < len(sequence); i++ {
		if sequence[i].CanTransition(sequence[i-1]) {
			t.Errorf("expected %s -> %s to be rejected", sequence[i], sequence[i-1])
		}
	}
}

func TestStatus_CanTransition_FailedFromAnyNonTerminal(t *testing.T) {
	for _, s := range []Status{StatusQueued, StatusParsing, StatusChunking, StatusEmbedding, StatusStoring} {
		if !s.CanTransition(StatusFailed) {
			t.Errorf("expected %s -> failed to be allowed", s)
		}
	}
	for _, s := range []Status{StatusReady, StatusFailed} {
		if s.CanTransition(StatusFailed) {
			t.Errorf("expected terminal %s -> failed to be rejected", s)
		}
	}
}

func TestStatus_CanTransition_Redelivery(t *testing.T) {
	// a re-delivered job re-enters at parsing (no chunks) or embedding (deduplicated)
	for _, from := range []Status{StatusReady, StatusFailed} {
		if !from.CanTransition(StatusParsing) {
			t.Errorf("expected %s -> parsing on re-delivery", from)
		}
		if !from.CanTransition(StatusEmbedding) {
			t.Errorf("expected %s -> embedding on re-delivery", from)
		}
		if from.CanTransition(StatusReady) {
			t.Errorf("expected %s -> ready to be rejected without a pipeline run", from)
		}
	}
}

func TestStatus_Predicates(t *testing.T) {
	tests := []struct {
		status     Status
		terminal   bool
		processing bool
	}{
		{StatusQueued, false, false},
		{StatusParsing, false, true},
		{StatusChunking, false, true},
		{StatusEmbedding, false, true},
		{StatusStoring, false, true},
		{StatusReady, true, false},
		{StatusFailed, true, false},
	}

	for _, tt := range tests {
		if got := tt.status.Terminal(); got != tt.terminal {
			t.Errorf("%s.Terminal() = %v, want %v", tt.status, got, tt.terminal)
		}
		if got := tt.status.Processing(); got != tt.processing {
			t.Errorf("%s.Processing() = %v, want %v", tt.status, got, tt.processing)
		}
	}

	if Status("bogus").Valid() {
		t.Error("expected bogus status to be invalid")
	}
}

func TestValidUserID(t *testing.T) {
	valid := []string{"u1", "alice", "user_42", "a-b-c", "ABC"}
	invalid := []string{"", "a b", "user@example.com", "füo", "a/b", "a:b"}

	for _, s := range valid {
		if !ValidUserID(s) {
			t.Errorf("expected %q to be valid", s)
		}
	}
	for _, s := range invalid {
		if ValidUserID(s) {
			t.Errorf("expected %q to be invalid", s)
		}
	}
}

func TestEncodeDecodeText(t *testing.T) {
	plain := "Greedy chunking stops closest to the budget. Ties favor stopping before."

	enc := EncodeText(plain)
	if enc == plain {
		t.Fatal("expected encoded text to differ from plain text")
	}

	dec, err := DecodeText(enc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dec != plain {
		t.Errorf("round trip mismatch: got %q", dec)
	}

	if _, err := DecodeText("not base64!!"); err == nil {
		t.Error("expected error for invalid base64")
	}
}

func TestCollectionForUser(t *testing.T) {
	if got := CollectionForUser("alice"); got != "doc_alice" {
		t.Errorf("got %q, want doc_alice", got)
	}
}
