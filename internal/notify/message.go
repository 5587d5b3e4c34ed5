package notify

import (
	"fmt"
	"strings"
	"time"

	"releasewatch/internal/release"
)

func composeSingle(item Item) (subject, body string) {
	switch item.Reason {
	case ReasonReleaseDay:
		subject = fmt.Sprintf("%s is out today", item.Title)
	case ReasonChanged:
		subject = fmt.Sprintf("New release date for %s", item.Title)
	default:
		subject = fmt.Sprintf("Release date announced for %s", item.Title)
	}

	var b strings.Builder
	b.WriteString(greeting(item.Recipient))
	b.WriteString("\r\n\r\n")
	writeItem(&b, item)
	b.WriteString("\r\nYou are receiving this because you follow this movie.\r\n")
	return subject, b.String()
}

func composeBatch(items []Item) (subject, body string) {
	subject = fmt.Sprintf("Release updates for %d movies you follow", len(items))

	var b strings.Builder
	if len(items) > 0 {
		b.WriteString(greeting(items[0].Recipient))
		b.WriteString("\r\n\r\n")
	}
	for _, item := range items {
		writeItem(&b, item)
		b.WriteString("\r\n")
	}
	b.WriteString("You are receiving this because you follow these movies.\r\n")
	return subject, b.String()
}

func greeting(r Recipient) string {
	if r.Name != "" {
		return "Hi " + r.Name + ","
	}
	return "Hi,"
}

func writeItem(b *strings.Builder, item Item) {
	b.WriteString(item.Title)
	b.WriteString("\r\n")
	writeDate(b, "In theaters", item.Theatrical, item.PreviousTheatrical)
	writeDate(b, "Streaming", item.Streaming, item.PreviousStreaming)
}

func writeDate(b *strings.Builder, label string, current, previous *time.Time) {
	if current == nil {
		return
	}
	fmt.Fprintf(b, "  %s: %s", label, current.Format("January 2, 2006"))
	if previous != nil && !previous.Equal(*current) {
		fmt.Fprintf(b, " (was %s)", release.FormatDate(*previous))
	}
	b.WriteString("\r\n")
}
