// 관련 알림 Slack 메시지 관련 메서드 정의

package client

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ioc-radar/backend/internal/model"
)

// SendRelevantAlert - 고객 IOC와 매칭된 알림을 Slack으로 전송
//
// 같은 알림에 대한 첫 전송은 새 메시지, 이후 고객은 그 스레드에 답글로 전송
func (c *SlackClient) SendRelevantAlert(ctx context.Context, profile model.ClientProfile, scored model.ScoredAlert) error {
	if !c.IsConfigured() {
		return fmt.Errorf("slack bot token or channel ID not configured")
	}

	severity := model.SeverityOf(scored.CVSS)
	title := fmt.Sprintf("%s [%s] %s", severityEmoji(severity), strings.ToUpper(severity), scored.Summary)

	fields := []SlackField{
		{Title: "Client", Value: profile.CompanyName, Short: true},
		{Title: "Relevance", Value: fmt.Sprintf("%d", scored.RelevanceScore), Short: true},
		{Title: "CVSS", Value: fmt.Sprintf("%.1f", scored.CVSS), Short: true},
		{Title: "Published", Value: scored.Published.Format(time.RFC3339), Short: true},
	}
	if len(scored.MatchedKeywords) > 0 {
		fields = append(fields, SlackField{Title: "Matched IOCs", Value: formatMatches(scored.MatchedKeywords), Short: false})
	}
	if scored.IndustryRelevant && profile.Industry != "" {
		fields = append(fields, SlackField{Title: "Industry", Value: profile.Industry, Short: true})
	}

	msg := SlackMessage{
		Channel: c.channelID,
		Attachments: []SlackAttachment{
			{
				Color:  severityColor(severity),
				Title:  title,
				Text:   scored.Description,
				Fields: fields,
				Footer: "ioc-radar",
				Ts:     time.Now().Unix(),
			},
		},
	}

	threadTS, threaded := c.GetThreadTS(scored.ID)
	if threaded {
		msg.ThreadTS = threadTS
	}

	resp, err := c.send(ctx, msg)
	if err != nil {
		return err
	}
	if !threaded && resp.TS != "" {
		c.StoreThreadTS(scored.ID, resp.TS)
	}
	return nil
}

func formatMatches(matches []model.MatchedKeyword) string {
	parts := make([]string, 0, len(matches))
	for _, m := range matches {
		parts = append(parts, fmt.Sprintf("`%s`: %s", m.Category, m.Word))
	}
	return strings.Join(parts, "\n")
}

// CVSS 구간에 따른 메시지 색상
func severityColor(severity string) string {
	switch severity {
	case model.SeverityCritical:
		return "#dc2626" // red
	case model.SeverityHigh:
		return "#ea580c" // orange
	case model.SeverityMedium:
		return "#d97706" // amber
	default:
		return "#65a30d" // green
	}
}

func severityEmoji(severity string) string {
	switch severity {
	case model.SeverityCritical:
		return "🚨"
	case model.SeverityHigh:
		return "🔥"
	default:
		return "⚠️"
	}
}
