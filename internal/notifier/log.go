package notifier

import (
	"context"
	"log/slog"

	"github.com/amishk599/jobsift/internal/model"
)

// Ensure LogNotifier implements model.Notifier.
var _ model.Notifier = (*LogNotifier)(nil)

// LogNotifier writes new postings to the given logger.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier returns a notifier that logs each posting via slog.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs each posting. It never fails.
func (n *LogNotifier) Notify(_ context.Context, postings []model.Posting) error {
	for _, p := range postings {
		n.logger.Info("new posting",
			"title", p.Title,
			"company", p.Company,
			"location", p.Location,
			"posted", p.TimePosted,
			"score", p.RelevanceScore,
			"source", p.Source,
			"link", p.Link,
		)
	}
	return nil
}
