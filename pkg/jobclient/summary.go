package jobclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-go-golems/leadctl/pkg/protocol"
	"github.com/pkg/errors"
)

// SummarizeArtifact renders a fetched step artifact as display lines: a
// headline followed by one line per item. Steps without a typed shape fall
// back to indented JSON.
func SummarizeArtifact(step protocol.Step, raw json.RawMessage) ([]string, error) {
	switch step {
	case protocol.StepDiscovery:
		var d DiscoveryResponse
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, errors.Wrap(err, "decode discovery artifact")
		}
		urls := d.URLs()
		lines := []string{fmt.Sprintf("%d urls across %d niches", len(urls), len(d.Discoveries))}
		for _, disc := range d.Discoveries {
			lines = append(lines, fmt.Sprintf("niche %q: %d urls (%s)", disc.Niche, disc.TotalURLs, disc.Source))
			for _, u := range disc.URLs {
				lines = append(lines, "  "+u)
			}
		}
		return lines, nil

	case protocol.StepVerification:
		var v VerificationResponse
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, errors.Wrap(err, "decode verification artifact")
		}
		lines := []string{fmt.Sprintf("%d shopify of %d verified (min confidence %.2f)",
			v.Metadata.ShopifyCount, v.Metadata.TotalVerified, v.Metadata.MinConfidenceThreshold)}
		for _, s := range v.ShopifySites {
			lines = append(lines, fmt.Sprintf("%s  confidence %.2f  %s", s.URL, s.Confidence, strings.Join(s.SignalsFound, ",")))
		}
		return lines, nil

	case protocol.StepAudit:
		var a AuditResponse
		if err := json.Unmarshal(raw, &a); err != nil {
			return nil, errors.Wrap(err, "decode audit artifact")
		}
		lines := []string{fmt.Sprintf("%d sites audited, %d ok, %d failed",
			a.Metadata.TotalSites, a.Metadata.Successful, a.Metadata.Failed)}
		for _, s := range a.Audits {
			if s.Error != "" {
				lines = append(lines, fmt.Sprintf("%s  error: %s", s.URL, s.Error))
				continue
			}
			lines = append(lines, fmt.Sprintf("%s  desktop %s  mobile %s", s.URL, viewportLine(s.Desktop), viewportLine(s.Mobile)))
		}
		return lines, nil

	case protocol.StepOutreach:
		var o OutreachResponse
		if err := json.Unmarshal(raw, &o); err != nil {
			return nil, errors.Wrap(err, "decode outreach artifact")
		}
		lines := []string{fmt.Sprintf("%d drafts, %d with emails", o.Metadata.TotalDrafts, o.Metadata.WithEmails)}
		for _, d := range o.Drafts {
			lines = append(lines, fmt.Sprintf("[%s] %s  %s", d.Status, d.StoreURL, d.Subject))
		}
		return lines, nil

	default:
		var buf bytes.Buffer
		if err := json.Indent(&buf, raw, "", "  "); err != nil {
			return nil, errors.Wrapf(err, "indent %s artifact", step)
		}
		return strings.Split(strings.TrimRight(buf.String(), "\n"), "\n"), nil
	}
}

func viewportLine(v *ViewportAudit) string {
	if v == nil {
		return "-"
	}
	if v.Error != "" {
		return "error"
	}
	return fmt.Sprintf("%d console/%d links", len(v.ConsoleErrors), len(v.LinkIssues))
}
