package slack

import (
	"fmt"

	goslack "github.com/slack-go/slack"
)

var statusEmoji = map[string]string{
	"done":      ":white_check_mark:",
	"error":     ":x:",
	"cancelled": ":no_entry_sign:",
}

var statusLabel = map[string]string{
	"done":      "Processing Complete",
	"error":     "Processing Failed",
	"cancelled": "Processing Cancelled",
}

func classSessionURL(classSessionID, dashboardURL string) string {
	return fmt.Sprintf("%s/sessions/%s", dashboardURL, classSessionID)
}

// BuildJobStartedMessage creates Block Kit blocks for a job-started notification.
func BuildJobStartedMessage(classSessionID, subject, dashboardURL string) []goslack.Block {
	url := classSessionURL(classSessionID, dashboardURL)
	text := fmt.Sprintf(":arrows_counterclockwise: *Processing started* for _%s_ — this may take a few minutes.\n<%s|View in Dashboard>",
		subject, url)

	return []goslack.Block{
		goslack.NewSectionBlock(
			goslack.NewTextBlockObject(goslack.MarkdownType, text, false, false),
			nil, nil,
		),
	}
}

// BuildJobCompletedMessage creates Block Kit blocks for a terminal job notification.
func BuildJobCompletedMessage(input JobCompletedInput, dashboardURL string) []goslack.Block {
	emoji := statusEmoji[input.Status]
	if emoji == "" {
		emoji = ":question:"
	}
	label := statusLabel[input.Status]
	if label == "" {
		label = "Processing " + input.Status
	}

	url := classSessionURL(input.ClassSessionID, dashboardURL)
	text := fmt.Sprintf("%s *%s* — _%s_\n<%s|View in Dashboard>", emoji, label, input.Subject, url)
	if input.Status == "error" {
		detail := input.ErrorMessage
		if input.FailedStage != "" {
			detail = fmt.Sprintf("stage `%s`: %s", input.FailedStage, detail)
		}
		text += fmt.Sprintf("\n> %s", detail)
	}

	return []goslack.Block{
		goslack.NewSectionBlock(
			goslack.NewTextBlockObject(goslack.MarkdownType, text, false, false),
			nil, nil,
		),
	}
}
