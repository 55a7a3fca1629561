// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package playlist

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/ManuGH/xemtv/internal/channel"
)

var (
	attrEscaper = strings.NewReplacer(`"`, `'`, "\n", " ", "\r", " ")
	lineEscaper = strings.NewReplacer("\n", " ", "\r", " ")
)

// WriteM3U renders groups as one extended M3U playlist with one entry per
// channel. Each entry carries the primary source and its playback hints, so
// the output parses back into the same channels.
func WriteM3U(w io.Writer, groups []channel.Group) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(headerDirective + "\n"); err != nil {
		return err
	}
	for _, g := range groups {
		for _, ch := range g.Channels {
			if len(ch.Sources) == 0 {
				continue
			}
			if err := writeEntry(bw, g.Name, ch); err != nil {
				return err
			}
		}
	}
	return bw.Flush()
}

func writeEntry(w *bufio.Writer, group string, ch *channel.Channel) error {
	src := ch.Sources[0]
	title := ch.Name
	if src.Label != "" && src.Label != channel.DefaultQuality {
		title += " " + src.Label
	}

	var b strings.Builder
	fmt.Fprintf(&b, `#EXTINF:-1 tvg-chno="%d"`, ch.ID)
	if ch.StableID != "" {
		fmt.Fprintf(&b, ` tvg-id="%s"`, attrEscaper.Replace(ch.StableID))
	}
	if ch.Logo != "" {
		fmt.Fprintf(&b, ` tvg-logo="%s"`, attrEscaper.Replace(ch.Logo))
	}
	fmt.Fprintf(&b, ` group-title="%s",%s`+"\n", attrEscaper.Replace(group), lineEscaper.Replace(title))

	if src.Referrer != "" {
		b.WriteString(vlcOptDirective + "http-referrer=" + lineEscaper.Replace(src.Referrer) + "\n")
	}
	if src.UserAgent != "" {
		b.WriteString(vlcOptDirective + "http-user-agent=" + lineEscaper.Replace(src.UserAgent) + "\n")
	}
	if src.LicenseType != "" {
		b.WriteString(kodiDirective + "inputstream.adaptive.license_type=" + src.LicenseType + "\n")
	}
	if src.LicenseKey != "" {
		b.WriteString(kodiDirective + "inputstream.adaptive.license_key=" + lineEscaper.Replace(src.LicenseKey) + "\n")
	}
	b.WriteString(lineEscaper.Replace(ch.URL) + "\n")

	_, err := w.WriteString(b.String())
	return err
}
