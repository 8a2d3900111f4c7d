package application

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/ericfisherdev/mrreminder/internal/domain/model"
)

// Message defaults applied when FormatterOptions leaves them empty.
const (
	DefaultMessageHeader   = "Merge requests are overdue:"
	DefaultAttachmentColor = "#FC6D26"
)

// slackEscaper escapes the three characters Slack treats as control sequences.
var slackEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// FormatterOptions configures the rendered message.
type FormatterOptions struct {
	Header    string
	Color     string
	Layout    model.MessageLayout
	UserMap   map[string]string // Username to chat user ID.
	Staleness StalenessPolicy
}

// Formatter renders blocked merge requests into one chat message.
type Formatter struct {
	opts    FormatterOptions
	userMap map[string]string
}

// NewFormatter creates a Formatter. The user map is copied and its keys are
// matched case-insensitively.
func NewFormatter(opts FormatterOptions) *Formatter {
	if opts.Header == "" {
		opts.Header = DefaultMessageHeader
	}
	if opts.Color == "" {
		opts.Color = DefaultAttachmentColor
	}
	if opts.Layout == "" {
		opts.Layout = model.LayoutCompact
	}

	userMap := make(map[string]string, len(opts.UserMap))
	for username, id := range opts.UserMap {
		userMap[strings.ToLower(username)] = id
	}

	return &Formatter{opts: opts, userMap: userMap}
}

// Render builds the message for the given merge requests. Merge requests
// without blockers other than their author are skipped. An empty result means
// there is nothing to send.
func (f *Formatter) Render(mrs []model.MergeRequest, now time.Time) model.Message {
	msg := model.Message{Text: f.opts.Header}

	for _, mr := range mrs {
		waitingOn := f.waitingOn(mr)
		if waitingOn == "" {
			continue
		}

		title := fmt.Sprintf("[#%d] %s", mr.IID, slackEscaper.Replace(mr.Title))
		details := fmt.Sprintf("⏳ %s stale · 🗓️ %s old · %s",
			f.staleFor(mr, now), Age(mr.CreatedAt, now), waitingOn)

		att := model.Attachment{Color: f.opts.Color}
		switch f.opts.Layout {
		case model.LayoutTitled:
			att.Title = title
			att.TitleLink = mr.WebURL
			att.Text = fmt.Sprintf("%s by %s\n%s", mr.ProjectName, f.Mention(mr.Author), details)
		default:
			att.Text = fmt.Sprintf("<%s|%s> (%s)\n%s", mr.WebURL, title, f.Mention(mr.Author), details)
		}
		msg.Attachments = append(msg.Attachments, att)
	}

	return msg
}

// Mention returns the chat mention for a GitLab username, or the username
// itself when it is not mapped.
func (f *Formatter) Mention(username string) string {
	if id, ok := f.userMap[strings.ToLower(username)]; ok && id != "" {
		return fmt.Sprintf("<@%s>", id)
	}
	return username
}

func (f *Formatter) waitingOn(mr model.MergeRequest) string {
	mentions := make([]string, 0, len(mr.Blockers))
	for _, user := range mr.Blockers {
		if strings.EqualFold(user, mr.Author) {
			continue
		}
		mentions = append(mentions, f.Mention(user))
	}
	if len(mentions) == 0 {
		return ""
	}
	return "Waiting on " + strings.Join(mentions, ", ")
}

func (f *Formatter) staleFor(mr model.MergeRequest, now time.Time) string {
	if f.opts.Staleness.Unit == model.StalenessBusinessHours {
		hours := f.opts.Staleness.Elapsed(mr.UpdatedAt, now)
		if hours == 1 {
			return "1 business hour"
		}
		return fmt.Sprintf("%d business hours", hours)
	}
	return Age(mr.UpdatedAt, now)
}

// Age renders the span between then and now without a suffix, e.g. "3 days".
func Age(then, now time.Time) string {
	if then.IsZero() {
		return "unknown"
	}
	return strings.TrimSpace(humanize.RelTime(then, now, "", ""))
}
