package flra

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"trafficdesk/internal/models"
	"trafficdesk/internal/util"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/image"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/extension"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

var (
	titleStyle   = props.Text{Size: 14, Style: fontstyle.Bold, Align: align.Center}
	sectionStyle = props.Text{Size: 11, Style: fontstyle.Bold, Top: 3}
	labelStyle   = props.Text{Size: 9, Style: fontstyle.Bold}
	valueStyle   = props.Text{Size: 9}
)

var riskLabels = map[int]string{1: "Low", 2: "Medium", 3: "High"}

// RenderPDF lays out the assessment for download. diagram may be nil.
func RenderPDF(f models.FLRA, job models.Job, diagram []byte) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageSize(pagesize.Letter).
		WithLeftMargin(12).
		WithRightMargin(12).
		WithTopMargin(10).
		Build()
	m := maroto.New(cfg)
	doc := f.Document.Data()

	m.AddRows(text.NewRow(10, "Field Level Risk Assessment", titleStyle))
	clientName := job.CompanyName
	if job.Client != nil && job.Client.Name != "" {
		clientName = job.Client.Name
	}
	m.AddRows(
		pair("Job", job.JobNumber, "Client", clientName),
		pair("Date", doc.Assessment.Date, "Time", doc.Assessment.Time),
		pair("Location", firstNonEmpty(doc.Assessment.Location, job.SiteAddress), "Supervisor", doc.Assessment.Supervisor),
		pair("Company contact", doc.Assessment.CompanyContact, "Site contact", doc.Assessment.SiteContact),
		pair("Site phone", util.FormatPhone(doc.Assessment.SitePhone), "Status", f.Status),
	)
	if doc.Assessment.Description != "" {
		m.AddRows(text.NewRow(6, "Scope of work", sectionStyle), text.NewRow(8, doc.Assessment.Description, valueStyle))
	}

	for _, sec := range []struct {
		title string
		boxes map[string]bool
	}{{"Road conditions", doc.Road}, {"Weather", doc.Weather}, {"Scope", doc.Scope}} {
		if checked := checkedKeys(sec.boxes); len(checked) > 0 {
			m.AddRows(text.NewRow(6, sec.title, sectionStyle), text.NewRow(6, strings.Join(checked, ", "), valueStyle))
		}
	}

	if len(doc.Hazards) > 0 {
		m.AddRows(text.NewRow(7, "Hazard assessment", sectionStyle))
		m.AddRow(6,
			text.NewCol(3, "Category", labelStyle),
			text.NewCol(4, "Hazard", labelStyle),
			text.NewCol(2, "Risk", labelStyle),
			text.NewCol(3, "Control", labelStyle),
		)
		for _, h := range doc.Hazards {
			m.AddRow(6,
				text.NewCol(3, h.Category, valueStyle),
				text.NewCol(4, h.Hazard, valueStyle),
				text.NewCol(2, riskLabel(h.Risk), valueStyle),
				text.NewCol(3, h.Control, valueStyle),
			)
		}
	}

	if len(doc.TCPRows) > 0 {
		m.AddRows(text.NewRow(7, "Traffic control plan", sectionStyle))
		m.AddRow(6,
			text.NewCol(3, "Name", labelStyle),
			text.NewCol(3, "Role", labelStyle),
			text.NewCol(2, "Equipment", labelStyle),
			text.NewCol(2, "Setup", labelStyle),
			text.NewCol(2, "Takedown", labelStyle),
		)
		for _, r := range doc.TCPRows {
			m.AddRow(6,
				text.NewCol(3, r.Name, valueStyle),
				text.NewCol(3, r.Role, valueStyle),
				text.NewCol(2, r.Equipment, valueStyle),
				text.NewCol(2, r.SetupTime, valueStyle),
				text.NewCol(2, r.TakedownBy, valueStyle),
			)
		}
	}

	if len(diagram) > 0 {
		if ext, ok := imageExtension(diagram); ok {
			m.AddRows(text.NewRow(7, "Site diagram", sectionStyle))
			m.AddRow(70, image.NewFromBytesCol(12, diagram, ext, props.Rect{Center: true, Percent: 95}))
		}
	}

	if doc.Comments != "" {
		m.AddRows(text.NewRow(6, "Comments", sectionStyle), text.NewRow(8, doc.Comments, valueStyle))
	}

	m.AddRows(text.NewRow(7, "Sign-off", sectionStyle))
	for _, so := range doc.SignOffs {
		m.AddRows(pair("Crew member", so.Name, "Signed", yesNo(strings.TrimSpace(so.Signature) != "")))
	}
	if img, ok := signatureImage(f.Signature); ok {
		if ext, ok := imageExtension(img); ok {
			m.AddRow(25, text.NewCol(3, "Supervisor signature", labelStyle), image.NewFromBytesCol(5, img, ext, props.Rect{Percent: 90}))
		}
	} else if strings.TrimSpace(f.Signature) != "" {
		m.AddRow(8, text.NewCol(3, "Supervisor signature", labelStyle), text.NewCol(9, f.Signature, props.Text{Size: 12, Style: fontstyle.Italic}))
	}
	if f.SubmittedAt != nil {
		m.AddRows(text.NewRow(6, "Submitted "+util.FormatDateTime(*f.SubmittedAt), props.Text{Size: 8, Top: 2}))
	}

	out, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("render flra pdf: %w", err)
	}
	return out.GetBytes(), nil
}

func pair(l1, v1, l2, v2 string) core.Row {
	return row.New(6).Add(
		text.NewCol(2, l1, labelStyle),
		text.NewCol(4, v1, valueStyle),
		text.NewCol(2, l2, labelStyle),
		text.NewCol(4, v2, valueStyle),
	)
}

func checkedKeys(boxes map[string]bool) []string {
	var out []string
	for k, v := range boxes {
		if v {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

func riskLabel(r int) string {
	if l, ok := riskLabels[r]; ok {
		return l
	}
	return "-"
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// imageExtension sniffs PNG and JPEG, the formats the renderer embeds.
func imageExtension(b []byte) (extension.Type, bool) {
	switch http.DetectContentType(b) {
	case "image/png":
		return extension.Png, true
	case "image/jpeg":
		return extension.Jpg, true
	}
	return "", false
}
