package scheduler

import (
	"context"
	"fmt"

	"flowerbot/internal/bot"
)

// SummaryReporter renders a period summary.
type SummaryReporter interface {
	Summary(ctx context.Context, period string) string
}

// ReportJob posts a period summary to a fixed chat.
type ReportJob struct {
	period   string
	chatID   int64
	reports  SummaryReporter
	sender   bot.Sender
	maxChunk int
}

func NewReportJob(period string, chatID int64, reports SummaryReporter, sender bot.Sender, chunkSize int) *ReportJob {
	if chunkSize <= 0 {
		chunkSize = bot.DefaultChunkSize
	}
	return &ReportJob{period: period, chatID: chatID, reports: reports, sender: sender, maxChunk: chunkSize}
}

func (j *ReportJob) Name() string {
	return j.period + "_summary_report"
}

func (j *ReportJob) Run(ctx context.Context) error {
	text := j.reports.Summary(ctx, j.period)
	for _, chunk := range bot.Chunk(text, j.maxChunk) {
		if err := j.sender.Send(ctx, j.chatID, chunk); err != nil {
			return fmt.Errorf("failed to send %s report to chat %d: %w", j.period, j.chatID, err)
		}
	}
	return nil
}
