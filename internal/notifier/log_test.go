package notifier

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/amishk599/jobsift/internal/model"
)

func TestLogNotifier_Notify_zeroPostings(t *testing.T) {
	n := NewLogNotifier(discardLogger())
	if err := n.Notify(context.Background(), nil); err != nil {
		t.Errorf("Notify(nil) = %v, want nil", err)
	}
	if err := n.Notify(context.Background(), []model.Posting{}); err != nil {
		t.Errorf("Notify([]) = %v, want nil", err)
	}
}

func TestLogNotifier_Notify_logsEachPosting(t *testing.T) {
	var buf bytes.Buffer
	n := NewLogNotifier(slog.New(slog.NewTextHandler(&buf, nil)))

	postings := []model.Posting{
		samplePosting("Engineer", "Acme"),
		samplePosting("Developer", "Beta"),
	}
	if err := n.Notify(context.Background(), postings); err != nil {
		t.Fatalf("Notify = %v, want nil", err)
	}

	out := buf.String()
	if c := strings.Count(out, "new posting"); c != 2 {
		t.Errorf("logged %d postings, want 2:\n%s", c, out)
	}
	if !strings.Contains(out, "company=Beta") {
		t.Errorf("missing company attr:\n%s", out)
	}
}
