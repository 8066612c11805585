package report

import (
	"fmt"
	"strings"

	"github.com/ternarybob/probo/internal/models"
)

// BuildMarkdown composes the verification report for a job as GFM markdown.
// The markdown is the canonical report shape; HTML and PDF are renderings of it.
func BuildMarkdown(job *models.Job) string {
	var b strings.Builder

	b.WriteString("# Verification Report\n\n")

	b.WriteString("| | |\n|---|---|\n")
	writeRow(&b, "Job", job.ID)
	writeRow(&b, "Document", job.Filename)
	writeRow(&b, "Type", variantLabel(job.Variant))
	writeRow(&b, "Submitted", job.SubmittedAt.Format("2006-01-02 15:04:05 MST"))
	if job.ProcessedAt != nil {
		writeRow(&b, "Processed", job.ProcessedAt.Format("2006-01-02 15:04:05 MST"))
	}
	writeRow(&b, "Status", strings.ToUpper(string(job.Status)))
	if job.Decision != "" {
		writeRow(&b, "Decision", string(job.Decision))
	}
	if sc := job.Payload.Scores(); sc != nil {
		writeRow(&b, "Final Score", fmt.Sprintf("%.1f / 100", sc.FinalScore))
	}
	b.WriteString("\n")

	writeScores(&b, job)
	writeFields(&b, job)
	writeRegistry(&b, job)
	writeForensic(&b, job)

	if len(job.Flags) > 0 {
		b.WriteString("## Flags\n\n")
		for _, f := range job.Flags {
			b.WriteString("- " + f + "\n")
		}
		b.WriteString("\n")
	}

	if job.Review != nil {
		b.WriteString("## Manual Review\n\n")
		b.WriteString("| | |\n|---|---|\n")
		writeRow(&b, "Reviewer", job.Review.ReviewerID)
		writeRow(&b, "Action", string(job.Review.Action))
		writeRow(&b, "Reviewed", job.Review.ReviewedAt.Format("2006-01-02 15:04:05 MST"))
		if job.Review.Notes != "" {
			writeRow(&b, "Notes", job.Review.Notes)
		}
		b.WriteString("\n")
	}

	return b.String()
}

func writeScores(b *strings.Builder, job *models.Job) {
	sc := job.Payload.Scores()
	if sc == nil {
		return
	}
	b.WriteString("## Scores\n\n")
	b.WriteString("| Component | Score |\n|---|---|\n")
	writeRow(b, "Document quality", fmt.Sprintf("%.1f", sc.OCRScore))
	writeRow(b, "Registry match", fmt.Sprintf("%.1f", sc.RegistryScore))
	writeRow(b, "Declared data match", fmt.Sprintf("%.1f", sc.ProvidedScore))
	if sc.OCRComparisonScore > 0 {
		writeRow(b, "Document comparison", fmt.Sprintf("%.1f", sc.OCRComparisonScore))
	}
	writeRow(b, "Data consistency", fmt.Sprintf("%.1f", sc.DataMatchScore))
	if job.Forensic != nil {
		writeRow(b, "Forensic penalty", fmt.Sprintf("-%.1f", job.Forensic.Penalty))
	}
	writeRow(b, "**Final**", fmt.Sprintf("**%.1f**", sc.FinalScore))
	b.WriteString("\n")
}

func writeFields(b *strings.Builder, job *models.Job) {
	type row struct{ label, declared, extracted, registry string }
	var rows []row

	switch {
	case job.Payload.Company != nil:
		p := job.Payload.Company
		rows = []row{
			{"Company name", p.Merchant.CompanyName, p.Extracted.CompanyName, p.Registry.CompanyName},
			{"Company number", p.Merchant.CompanyNumber, p.Extracted.CompanyNumber, p.Registry.CompanyNumber},
			{"Address", p.Merchant.Address, p.Extracted.Address, p.Registry.Address},
			{"Date", p.Merchant.Date, p.Extracted.Date, p.Registry.Date},
		}
	case job.Payload.VAT != nil:
		p := job.Payload.VAT
		rows = []row{
			{"VAT number", p.Merchant.VATNumber, p.Extracted.VATNumber, p.Registry.VATNumber},
			{"Business name", p.Merchant.BusinessName, p.Extracted.BusinessName, p.Registry.BusinessName},
			{"Address", p.Merchant.Address, p.Extracted.Address, p.Registry.Address},
			{"Registration date", p.Merchant.RegistrationDate, p.Extracted.RegistrationDate, p.Registry.RegistrationDate},
		}
	case job.Payload.Director != nil:
		p := job.Payload.Director
		rows = []row{
			{"Director name", p.Merchant.DirectorName, p.Extracted.DirectorName, officerName(p.MatchedOfficer)},
			{"Date of birth", p.Merchant.DateOfBirth, p.Extracted.DateOfBirth, officerDOB(p.MatchedOfficer)},
			{"Company name", p.Merchant.CompanyName, p.Extracted.CompanyName, ""},
			{"Company number", p.Merchant.CompanyNumber, p.Extracted.CompanyNumber, ""},
		}
	default:
		return
	}

	b.WriteString("## Document Fields\n\n")
	b.WriteString("| Field | Declared | Extracted | Registry |\n|---|---|---|---|\n")
	for _, r := range rows {
		fmt.Fprintf(b, "| %s | %s | %s | %s |\n",
			r.label, orDash(r.declared), orDash(r.extracted), orDash(r.registry))
	}
	b.WriteString("\n")
}

func writeRegistry(b *strings.Builder, job *models.Job) {
	switch {
	case job.Payload.Company != nil && len(job.Payload.Company.Officers) > 0:
		b.WriteString("## Registered Officers\n\n")
		b.WriteString("| Name | Role | Appointed |\n|---|---|---|\n")
		for _, o := range job.Payload.Company.Officers {
			fmt.Fprintf(b, "| %s | %s | %s |\n", o.Name, orDash(o.Role), orDash(o.AppointedOn))
		}
		b.WriteString("\n")
	case job.Payload.VAT != nil && job.Payload.VAT.RegistryValid != nil:
		b.WriteString("## VAT Registry\n\n")
		if *job.Payload.VAT.RegistryValid {
			b.WriteString("The VAT number is registered with the tax authority.\n\n")
		} else {
			b.WriteString("The VAT number is **not** registered with the tax authority.\n\n")
		}
	case job.Payload.Director != nil:
		p := job.Payload.Director
		b.WriteString("## Director Verification\n\n")
		if p.Verified {
			b.WriteString("The director was found in the company's officer register.\n\n")
		} else if p.VerifyReason != "" {
			fmt.Fprintf(b, "Not verified: %s\n\n", p.VerifyReason)
		}
	}
}

func writeForensic(b *strings.Builder, job *models.Job) {
	f := job.Forensic
	if f == nil {
		return
	}
	b.WriteString("## Forensic Analysis\n\n")
	b.WriteString("| Check | Score |\n|---|---|\n")
	writeRow(b, "Error level analysis", fmt.Sprintf("%.0f", f.ELAScore))
	writeRow(b, "Compression quality", fmt.Sprintf("%.0f", f.JPEGQuality))
	writeRow(b, "Copy-move detection", fmt.Sprintf("%.0f", f.CopyMove.Confidence))
	writeRow(b, "Document metadata", fmt.Sprintf("%.0f", f.PDFMetadataScore))
	writeRow(b, "Resolution consistency", fmt.Sprintf("%.0f", f.ResolutionScore))
	writeRow(b, "Histogram", fmt.Sprintf("%.0f", f.HistogramScore))
	writeRow(b, "Noise pattern", fmt.Sprintf("%.0f", f.NoiseScore))
	writeRow(b, "**Overall**", fmt.Sprintf("**%.0f**", f.ForensicScore))
	b.WriteString("\n")

	if len(f.Details) > 0 {
		b.WriteString("Findings:\n\n")
		for _, d := range f.Details {
			b.WriteString("- " + d + "\n")
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(b, "Document digest: `%s` (SHA-256), %d bytes.\n\n", f.SHA256, f.FileSize)
}

func writeRow(b *strings.Builder, label, value string) {
	fmt.Fprintf(b, "| %s | %s |\n", label, value)
}

func orDash(v string) string {
	if strings.TrimSpace(v) == "" {
		return "-"
	}
	return v
}

func officerName(o *models.Officer) string {
	if o == nil {
		return ""
	}
	return o.Name
}

func officerDOB(o *models.Officer) string {
	if o == nil {
		return ""
	}
	return o.DateOfBirth
}

func variantLabel(v models.Variant) string {
	switch v {
	case models.VariantCorpIncorporation:
		return "Certificate of Incorporation"
	case models.VariantCompanyRegistration:
		return "Company Registration Certificate"
	case models.VariantVATRegistration:
		return "VAT Registration Certificate"
	case models.VariantDirectorVerification:
		return "Director Verification"
	}
	return string(v)
}
